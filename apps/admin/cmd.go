package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/attendtrack/core"
	"github.com/trezcool/attendtrack/core/profile"
	"github.com/trezcool/attendtrack/core/setup"
	"github.com/trezcool/attendtrack/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sql.DB
	out      io.Writer
	validate *validator.Validate
	tx       core.Transactor

	usrSvc     *user.Service
	profileSvc *profile.Service
	setupSvc   *setup.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  setup [-admin-username USERNAME] [-admin-email EMAIL] - create the first accounts")
	fmt.Println("  adduser -role ROLE -email EMAIL [...] - create an account with its profile")
	fmt.Println("  linkparent -roll ROLL_NUMBER -parent EMAIL - link a student to a parent")
	fmt.Println("  resetpassword -username USERNAME|EMAIL - reset an account's password")
	fmt.Println("  activate -username USERNAME|EMAIL - activate an account")
	fmt.Println("  deactivate -username USERNAME|EMAIL - deactivate an account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	setupCmd := flag.NewFlagSet("setup", flag.ExitOnError)
	setupAdminUname := setupCmd.String("admin-username", "", "The admin teacher's username (default \""+setup.DefaultAdminUsername+"\").")
	setupAdminEmail := setupCmd.String("admin-email", "", "The admin teacher's email (default \""+setup.DefaultAdminEmail+"\").")

	addUserCmd := flag.NewFlagSet("adduser", flag.ExitOnError)
	addUserRole := addUserCmd.String("role", "", "One of student, teacher or parent.")
	addUserUname := addUserCmd.String("username", "", "The username. Students default to their roll number.")
	addUserEmail := addUserCmd.String("email", "", "The email.")
	addUserName := addUserCmd.String("name", "", "The full name.")
	addUserPhone := addUserCmd.String("phone", "", "The phone number.")
	addUserRoll := addUserCmd.String("roll", "", "The student's roll number.")
	addUserClass := addUserCmd.String("class", "", "The student's class.")
	addUserParent := addUserCmd.String("parent", "", "The student's parent email.")
	addUserDept := addUserCmd.String("department", "", "The teacher's department, i.e. the class they teach.")
	addUserSubject := addUserCmd.String("subject", "", "The teacher's subject.")

	linkParentCmd := flag.NewFlagSet("linkparent", flag.ExitOnError)
	linkParentRoll := linkParentCmd.String("roll", "", "The student's roll number.")
	linkParentEmail := linkParentCmd.String("parent", "", "The parent's email.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	activateCmd := flag.NewFlagSet(args[1], flag.ExitOnError)
	activateUname := activateCmd.String("username", "", "The user's username or email.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "setup":
		if err := setupCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.setup(*setupAdminUname, *setupAdminEmail)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		role, err := user.ParseRole(*addUserRole)
		if err != nil || *addUserEmail == "" {
			addUserCmd.Usage()
			return errHelp
		}
		if role == user.RoleStudent && (*addUserRoll == "" || *addUserClass == "") {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(setup.Provision{
			Role:       role,
			Username:   *addUserUname,
			Email:      *addUserEmail,
			FullName:   *addUserName,
			Phone:      *addUserPhone,
			RollNumber: *addUserRoll,
			ClassName:  *addUserClass,
			Department: *addUserDept,
			Subject:    *addUserSubject,
		}, *addUserParent)
	case "linkparent":
		if err := linkParentCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *linkParentRoll == "" || *linkParentEmail == "" {
			linkParentCmd.Usage()
			return errHelp
		}
		return cli.linkParent(*linkParentRoll, *linkParentEmail)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, string(pwd))
	case "activate", "deactivate":
		if err := activateCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *activateUname == "" {
			activateCmd.Usage()
			return errHelp
		}
		return cli.setActive(*activateUname, args[1] == "activate")
	default:
		cli.printUsage()
		return errHelp
	}
}
