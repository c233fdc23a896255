/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
)

var (
	IsDevelopment bool
	ServiceName   string
	ByPassAuth    bool
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	flag.StringVar(&ServiceName, "service", APIServer, "service name reported to logging and tracing")
	flag.BoolVar(&ByPassAuth, "no_auth", false, "skip the identity middleware, every request is anonymous")
}

// Parse reads the command line into the shared flags. Only main may call
// this: parsing from init would run before the testing package registers
// its own flags and break every test binary that links this package.
func Parse() {
	flag.Parse()
}
