package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level content from any file.
type fileRoot struct {
	Endpoint           string          `hcl:"endpoint,optional"`
	Namespace          string          `hcl:"namespace,optional"`
	ReadyEvent         string          `hcl:"ready_event,optional"`
	ConnectTimeout     string          `hcl:"connect_timeout,optional"`
	InsecureSkipVerify bool            `hcl:"insecure_skip_verify,optional"`
	Bindings           []*bindingBlock `hcl:"binding,block"`
	Remain             hcl.Body        `hcl:",remain"`
}

// bindingBlock maps to:
//
//	binding "<event>" {
//	  region = "<region id>"
//	  field  = "<payload key>" # optional, defaults to "data"
//	}
type bindingBlock struct {
	Event  string `hcl:"event,label"`
	Region string `hcl:"region"`
	Field  string `hcl:"field,optional"`
}
