package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/ieptracker/apps"
	"github.com/trezcool/ieptracker/core/store"
)

const tokenEnv = "DRIVE_TOKEN"

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	svc *store.Service
	out io.Writer
	// token is the drive credential used unless -token-prompt is given.
	token string
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  status                 - show the local store and drive folder state")
	fmt.Fprintln(cli.out, "  backups                - list the local backups")
	fmt.Fprintln(cli.out, "  restore -key KEY       - replace the roster with a local backup")
	fmt.Fprintln(cli.out, "  prune [-max N]         - keep the N most recent local backups")
	fmt.Fprintln(cli.out, "  export -o FILE         - export the roster to FILE")
	fmt.Fprintln(cli.out, "  import -i FILE         - replace the roster with an export file")
	fmt.Fprintln(cli.out, "  report -o FILE         - write the progress workbook to FILE")
	fmt.Fprintln(cli.out, "  clear -yes             - delete all local and drive data")
	fmt.Fprintln(cli.out, "All commands accept -token-prompt to type the drive token instead of reading $"+tokenEnv+".")
}

// newFlagSet returns a flag set carrying the shared -token-prompt flag.
func newFlagSet(name string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	prompt := fs.Bool("token-prompt", false, "Prompt for the drive token.")
	return fs, prompt
}

// credential returns the drive token, prompting for it when asked to.
func (cli *commandLine) credential(prompt bool) (string, error) {
	if !prompt {
		return cli.token, nil
	}
	fmt.Fprint(cli.out, "Enter drive token:")
	tok, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(tok), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	cmd, prompt := newFlagSet(args[1])
	cmd.SetOutput(cli.out)
	key := cmd.String("key", "", "The key of the backup to restore.")
	max := cmd.Int("max", 0, "The number of backups to keep. Defaults to the configured maximum.")
	output := cmd.String("o", "", "The file to write.")
	input := cmd.String("i", "", "The export file to read.")
	yes := cmd.Bool("yes", false, "Confirm the deletion of all data.")

	switch args[1] {
	case "status", "backups", "restore", "prune", "export", "import", "report", "clear":
	default:
		cli.printUsage()
		return errHelp
	}
	if err := cmd.Parse(args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	token, err := cli.credential(*prompt)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch args[1] {
	case "status":
		return cli.status(ctx, token)
	case "backups":
		return cli.backups(ctx)
	case "restore":
		if *key == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.restore(ctx, *key, token)
	case "prune":
		if *max < 0 {
			return apps.NewArgumentError("max", "must not be negative")
		}
		return cli.prune(ctx, *max)
	case "export":
		if *output == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.export(ctx, *output, token)
	case "import":
		if *input == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.importFile(ctx, *input, token)
	case "report":
		if *output == "" {
			cmd.Usage()
			return errHelp
		}
		return cli.report(ctx, *output, token)
	default: // clear
		if !*yes {
			fmt.Fprintln(cli.out, "This deletes the roster, every backup and the drive folder contents. Pass -yes to confirm.")
			return errHelp
		}
		return cli.clear(ctx, token)
	}
}

// createFile opens the path given to -o for writing, refusing to overwrite an existing file.
func createFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil, apps.NewArgumentError("o", path+" already exists")
		}
		return nil, err
	}
	return f, nil
}
