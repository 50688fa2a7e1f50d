// Package hcl provides the concrete HCL implementation of the configuration
// Loader defined in the `config` package. It is responsible for file
// parsing, expression evaluation against the process environment, and
// HCL-to-model translation.
package hcl
