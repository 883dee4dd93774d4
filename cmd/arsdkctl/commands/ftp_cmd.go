package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
)

var (
	ftpAddr string
	ftpPort int
)

var ftpCmd = &cobra.Command{
	Use:   "ftp",
	Short: "Raw FTP engine operations against a device (spec §4.5)",
}

func addFTPTargetFlags(c *cobra.Command) {
	c.Flags().StringVar(&ftpAddr, "addr", "", "device address")
	c.Flags().IntVar(&ftpPort, "port", 21, "FTP control port")
	c.MarkFlagRequired("addr")
}

func newFTPPool() *ftp.Pool {
	return ftp.NewPool(ftp.DefaultCredentials)
}

var ftpGetCmd = &cobra.Command{
	Use:   "get <remote-path> <local-path>",
	Short: "Download a file, resuming a partial local copy if one exists",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		remotePath, localPath := args[0], args[1]
		pool := newFTPPool()
		defer pool.Close()

		var resumeFrom int64
		if fi, err := os.Stat(localPath); err == nil {
			resumeFrom = fi.Size()
		}
		f, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()

		err = ftp.Get(pool, ftpAddr, ftpPort, remotePath, f, resumeFrom, func(transferred int64) {
			if verbose {
				cli.PrintVerbose(true, "%s: %d bytes", remotePath, transferred)
			}
		})
		if err != nil {
			return err
		}
		cli.PrintSuccess("downloaded %s -> %s", remotePath, localPath)
		return nil
	},
}

var ftpPutCmd = &cobra.Command{
	Use:   "put <local-path> <remote-path>",
	Short: "Upload a file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath, remotePath := args[0], args[1]
		pool := newFTPPool()
		defer pool.Close()

		f, err := os.Open(localPath)
		if err != nil {
			return err
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return err
		}

		err = ftp.Put(pool, ftpAddr, ftpPort, remotePath, f, fi.Size(), false, func(transferred int64) {
			if verbose {
				cli.PrintVerbose(true, "%s: %d bytes", remotePath, transferred)
			}
		})
		if err != nil {
			return err
		}
		cli.PrintSuccess("uploaded %s -> %s", localPath, remotePath)
		return nil
	},
}

var ftpListCmd = &cobra.Command{
	Use:   "list <remote-dir>",
	Short: "List a remote directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newFTPPool()
		defer pool.Close()

		entries, err := ftp.List(pool, ftpAddr, ftpPort, args[0])
		if err != nil {
			return err
		}
		for _, e := range entries {
			kind := "-"
			if e.IsDir {
				kind = "d"
			}
			fmt.Printf("%s %10d %s\n", kind, e.Size, e.Name)
		}
		return nil
	},
}

var ftpRenameCmd = &cobra.Command{
	Use:   "rename <from> <to>",
	Short: "Rename a remote file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newFTPPool()
		defer pool.Close()
		if err := ftp.Rename(pool, ftpAddr, ftpPort, args[0], args[1]); err != nil {
			return err
		}
		cli.PrintSuccess("renamed %s -> %s", args[0], args[1])
		return nil
	},
}

var ftpDeleteCmd = &cobra.Command{
	Use:   "delete <remote-path>",
	Short: "Delete a remote file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := newFTPPool()
		defer pool.Close()
		if err := ftp.Delete(pool, ftpAddr, ftpPort, args[0]); err != nil {
			return err
		}
		cli.PrintSuccess("deleted %s", args[0])
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{ftpGetCmd, ftpPutCmd, ftpListCmd, ftpRenameCmd, ftpDeleteCmd} {
		addFTPTargetFlags(c)
	}
	ftpCmd.AddCommand(ftpGetCmd, ftpPutCmd, ftpListCmd, ftpRenameCmd, ftpDeleteCmd)
	rootCmd.AddCommand(ftpCmd)
}
