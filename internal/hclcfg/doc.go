// Package hclcfg implements loading and data binding for the primary HCL
// configuration syntax: workflow definitions, action manifests, and the
// cty-backed converter used to bind step arguments to handler inputs.
package hclcfg
