package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/trezcool/ieptracker/core/dates"
	"github.com/trezcool/ieptracker/core/store"
	"github.com/trezcool/ieptracker/core/student"
	reportsvc "github.com/trezcool/ieptracker/services/report"
)

// restore replaces the saved roster with a local backup.
func (cli *commandLine) restore(ctx context.Context, key, token string) error {
	students, err := cli.svc.RestoreBackup(ctx, key)
	if err != nil {
		return err
	}
	return cli.save(ctx, students, token)
}

func (cli *commandLine) prune(ctx context.Context, max int) error {
	if err := cli.svc.PruneBackups(ctx, max); err != nil {
		return err
	}
	return cli.backups(ctx)
}

func (cli *commandLine) export(ctx context.Context, path, token string) error {
	students := cli.load(ctx, token)

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	res, err := cli.svc.Export(ctx, f, students, token, filepath.Base(path))
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Exported %d students to %s\n", len(students), path)
	cli.printRemote("export", res.Remote)
	return nil
}

func (cli *commandLine) importFile(ctx context.Context, path, token string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening import file")
	}
	defer func() { _ = f.Close() }()

	students, err := cli.svc.Import(f)
	if err != nil {
		return err
	}
	return cli.save(ctx, students, token)
}

func (cli *commandLine) report(ctx context.Context, path, token string) error {
	students := cli.load(ctx, token)

	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err = reportsvc.WriteWorkbook(f, students, dates.Today()); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Wrote the progress of %d students to %s\n", len(students), path)
	return nil
}

func (cli *commandLine) clear(ctx context.Context, token string) error {
	if err := cli.svc.ClearAll(ctx, token); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "All data deleted")
	return nil
}

func (cli *commandLine) load(ctx context.Context, token string) []student.Student {
	res := cli.svc.Load(ctx, token)
	cli.printRemote("load", res.Remote)
	return res.Students
}

func (cli *commandLine) save(ctx context.Context, students []student.Student, token string) error {
	res, err := cli.svc.Save(ctx, students, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Saved %d students\n", len(students))
	if res.Local.BackupError != "" {
		fmt.Fprintf(cli.out, "warning: local backup failed: %s\n", res.Local.BackupError)
	}
	cli.printRemote("save", res.Remote)
	return nil
}

func (cli *commandLine) printRemote(op string, res store.RemoteResult) {
	if res.Attempted && !res.OK {
		fmt.Fprintf(cli.out, "warning: drive %s failed: %s\n", op, res.Message)
	}
}
