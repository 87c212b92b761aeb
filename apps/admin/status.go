package main

import (
	"context"
	"fmt"
	"time"
)

func (cli *commandLine) status(ctx context.Context, token string) error {
	info, err := cli.svc.Info(ctx, token)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "Local: %d bytes, %d backups, last saved %s\n",
		info.Local.SizeBytes, info.Local.BackupCount, formatTime(info.Local.LastSaved))
	switch {
	case !cli.svc.RemoteEnabled():
		fmt.Fprintln(cli.out, "Drive: disabled")
	case info.Folder != nil:
		fmt.Fprintf(cli.out, "Drive: folder %s, %d files, last modified %s\n",
			info.Folder.FolderID, info.Folder.FileCount, formatTime(info.Folder.LastModified))
	case !info.Remote.Attempted:
		fmt.Fprintln(cli.out, "Drive: no token")
	default:
		fmt.Fprintf(cli.out, "Drive: unavailable (%s)\n", info.Remote.Message)
	}
	return nil
}

func (cli *commandLine) backups(ctx context.Context) error {
	backups, err := cli.svc.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintln(cli.out, "No backups")
		return nil
	}
	for _, b := range backups {
		fmt.Fprintf(cli.out, "%s\t%d students\t%s\n", b.Key, b.StudentCount, b.BackupDate.Format(time.RFC3339))
	}
	return nil
}

func formatTime(ts *time.Time) string {
	if ts == nil {
		return "never"
	}
	return ts.Format(time.RFC3339)
}
