package demo

import (
	"errors"

	"testrig/internal/module"
	"testrig/internal/resource"
	"testrig/internal/testcase"
)

// Cases lists the demo cases with their metadata.
var Cases = []testcase.Registration{
	{
		Meta:    testcase.Meta{Name: "hello_world", Description: "greet the first server", Priority: 1, Type: testcase.TypeSanity},
		Factory: NewHelloWorld,
	},
	{
		Meta:    testcase.Meta{Name: "login_data", Description: "data-driven logins", Priority: 2, Type: testcase.TypeFeature},
		Factory: NewLoginData,
	},
	{
		Meta: testcase.Meta{
			Name: "link_check", Description: "server is cabled to a switch", Priority: 2,
			Type: testcase.TypeRegression, PreTests: []string{"hello_world"},
		},
		Factory: NewLinkCheck,
	},
	{
		Meta: testcase.Meta{
			Name: "version_gate", Description: "servers run supported firmware", Priority: 3,
			Type: testcase.TypeSystem, SkipIfHighPriorityFailed: true,
		},
		Factory: NewVersionGate,
	},
}

// Register adds the demo cases, modules and comm factories.
func Register(cases *testcase.Registry, modules *module.Registry, comms *resource.CommRegistry) error {
	var errs []error
	for _, c := range Cases {
		errs = append(errs, cases.Register(c.Meta, c.Factory))
	}
	errs = append(errs,
		modules.Register("banner", NewBanner),
		modules.Register("monitor", NewMonitor),
		comms.Register("server", NewConsole),
		comms.Register("tcp", NewTCPClient),
	)
	return errors.Join(errs...)
}
