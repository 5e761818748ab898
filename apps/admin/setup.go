package main

import (
	"context"
	"fmt"

	"github.com/trezcool/attendtrack/core/setup"
)

func (cli *commandLine) printCredential(cred setup.Credential) {
	fmt.Fprintf(cli.out, "%-8s %-24s %s\n", cred.Role, cred.Username, cred.Password)
}

// setup runs the bootstrap and prints the one-time passwords.
func (cli *commandLine) setup(adminUname, adminEmail string) error {
	req := setup.Request{Admin: setup.AdminRequest{Username: adminUname, Email: adminEmail}}
	if err := req.Validate(cli.validate); err != nil {
		return err
	}

	res, err := cli.setupSvc.Run(context.Background(), req)
	if err != nil {
		return err
	}
	for _, cred := range res.Credentials {
		cli.printCredential(cred)
	}
	return nil
}
