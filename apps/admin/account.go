package main

import (
	"context"
	"fmt"

	"github.com/trezcool/attendtrack/core/setup"
	"github.com/trezcool/attendtrack/core/user"
)

// addUser creates an account with its profile, then links a student to its parent.
func (cli *commandLine) addUser(pv setup.Provision, parentEmail string) error {
	var cred setup.Credential
	err := cli.tx.WithinTx(context.Background(), func(ctx context.Context) error {
		var err error
		if cred, err = cli.setupSvc.Provision(ctx, pv); err != nil {
			return err
		}
		if pv.Role == user.RoleStudent && parentEmail != "" {
			_, err = cli.profileSvc.LinkParent(ctx, pv.RollNumber, parentEmail)
		}
		return err
	})
	if err != nil {
		return err
	}
	cli.printCredential(cred)
	return nil
}

func (cli *commandLine) linkParent(rollNumber, parentEmail string) error {
	s, err := cli.profileSvc.LinkParent(context.Background(), rollNumber, parentEmail)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "%s linked to %s\n", s.RollNumber, parentEmail)
	return nil
}

// resetPassword sets pwd; the account must change it on next login.
func (cli *commandLine) resetPassword(uname, pwd string) error {
	_, err := cli.usrSvc.ResetPassword(context.Background(), uname, pwd)
	return err
}

func (cli *commandLine) setActive(uname string, active bool) error {
	acc, err := cli.usrSvc.SetActive(context.Background(), uname, active)
	if err != nil {
		return err
	}
	state := "deactivated"
	if acc.IsActive {
		state = "activated"
	}
	fmt.Fprintf(cli.out, "%s %s\n", acc.Username, state)
	return nil
}
