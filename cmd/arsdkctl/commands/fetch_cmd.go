package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/itf"
	"github.com/arsdkgo/arsdkctrl/pkg/storage"
)

var (
	fetchAddr      string
	fetchPort      int
	fetchOut       string
	fetchMirrorBkt string
	fetchMirrorPfx string
)

func addFetchTargetFlags(c *cobra.Command) {
	c.Flags().StringVar(&fetchAddr, "addr", "", "device address")
	c.Flags().IntVar(&fetchPort, "port", 21, "FTP control port")
	c.Flags().StringVar(&fetchOut, "out", ".", "local directory to download into")
	c.Flags().StringVar(&fetchMirrorBkt, "s3-mirror-bucket", "", "additionally archive downloaded files to this S3 bucket")
	c.Flags().StringVar(&fetchMirrorPfx, "s3-mirror-prefix", "", "key prefix within --s3-mirror-bucket")
	c.MarkFlagRequired("addr")
}

// fetchMirror builds the optional archival FileStore for --s3-mirror-bucket,
// or nil if unset. Credentials and region come from AWS_ACCESS_KEY_ID/
// AWS_SECRET_ACCESS_KEY/AWS_REGION, the environment variables every AWS SDK
// honors, kept minimal here since arsdkctl has no other AWS config surface.
func fetchMirror() (storage.FileStore, error) {
	if fetchMirrorBkt == "" {
		return nil, nil
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		return nil, fmt.Errorf("--s3-mirror-bucket requires AWS_REGION to be set")
	}
	cfg := aws.Config{
		Region: region,
		Credentials: aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
				SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
				SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
			}, nil
		}),
	}
	return storage.NewS3(s3.NewFromConfig(cfg), fetchMirrorBkt, fetchMirrorPfx), nil
}

var crashmlCmd = &cobra.Command{
	Use:   "crashml",
	Short: "Fetch crash reports (spec §4.6 crashml)",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		mirror, err := fetchMirror()
		if err != nil {
			return err
		}
		done := make(chan error, 1)
		itf.StartCrashmlFetch(pool, fetchAddr, fetchPort, fetchOut, arsdk.DeviceTypeDrone,
			itf.CrashmlTypeDir|itf.CrashmlTypeTargz, mirror,
			func(path string, count, total int, status itf.Status) {
				fmt.Printf("[%d/%d] %s (%s)\n", count, total, path, status)
			},
			func(status itf.Status, err error) {
				if status != itf.StatusOK {
					done <- fmt.Errorf("crashml fetch finished with status %s: %v", status, err)
					return
				}
				done <- nil
			})
		if err := <-done; err != nil {
			return err
		}
		cli.PrintSuccess("crashml reports downloaded to %s", fetchOut)
		return nil
	},
}

var flightLogCmd = &cobra.Command{
	Use:   "flight-log",
	Short: "Fetch flight logs (spec §4.6 flight log)",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		mirror, err := fetchMirror()
		if err != nil {
			return err
		}
		done := make(chan error, 1)
		itf.StartFlightLogFetch(pool, fetchAddr, fetchPort, fetchOut, arsdk.DeviceTypeDrone, mirror,
			func(path string, count, total int, status itf.Status) {
				fmt.Printf("[%d/%d] %s (%s)\n", count, total, path, status)
			},
			func(status itf.Status, err error) {
				if status != itf.StatusOK {
					done <- fmt.Errorf("flight-log fetch finished with status %s: %v", status, err)
					return
				}
				done <- nil
			})
		if err := <-done; err != nil {
			return err
		}
		cli.PrintSuccess("flight logs downloaded to %s", fetchOut)
		return nil
	},
}

var pudCmd = &cobra.Command{
	Use:   "pud",
	Short: "Fetch run-data (PUD) files (spec §4.6 pud)",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		mirror, err := fetchMirror()
		if err != nil {
			return err
		}
		done := make(chan error, 1)
		itf.StartPudFetch(pool, fetchAddr, fetchPort, fetchOut, arsdk.DeviceTypeDrone, mirror,
			func(path string, count, total int, status itf.Status) {
				fmt.Printf("[%d/%d] %s (%s)\n", count, total, path, status)
			},
			func(status itf.Status, err error) {
				if status != itf.StatusOK {
					done <- fmt.Errorf("pud fetch finished with status %s: %v", status, err)
					return
				}
				done <- nil
			})
		if err := <-done; err != nil {
			return err
		}
		cli.PrintSuccess("pud files downloaded to %s", fetchOut)
		return nil
	},
}

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Media resource operations (spec §4.6 media)",
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List media resources on the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		entries, err := ftp.List(pool, fetchAddr, fetchPort, "/internal_000/media")
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%10s %s\n", cli.FormatBytes(e.Size), e.Name)
		}
		return nil
	},
}

var mediaDlCmd = &cobra.Command{
	Use:   "dl",
	Short: "Download media resources",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		mirror, err := fetchMirror()
		if err != nil {
			return err
		}
		done := make(chan error, 1)
		itf.StartMediaFetch(pool, fetchAddr, fetchPort, fetchOut, arsdk.DeviceTypeDrone, mirror,
			func(path string, count, total int, status itf.Status) {
				fmt.Printf("[%d/%d] %s (%s)\n", count, total, path, status)
			},
			func(status itf.Status, err error) {
				if status != itf.StatusOK {
					done <- fmt.Errorf("media fetch finished with status %s: %v", status, err)
					return
				}
				done <- nil
			})
		if err := <-done; err != nil {
			return err
		}
		cli.PrintSuccess("media downloaded to %s", fetchOut)
		return nil
	},
}

var mediaDeleteCmd = &cobra.Command{
	Use:   "delete <remote-name>",
	Short: "Delete a media resource from the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		remotePath := "/internal_000/media/" + args[0]
		if err := ftp.Delete(pool, fetchAddr, fetchPort, remotePath); err != nil {
			return err
		}
		cli.PrintSuccess("deleted %s", remotePath)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{crashmlCmd, flightLogCmd, pudCmd, mediaListCmd, mediaDlCmd, mediaDeleteCmd} {
		addFetchTargetFlags(c)
	}
	mediaCmd.AddCommand(mediaListCmd, mediaDlCmd, mediaDeleteCmd)
	rootCmd.AddCommand(crashmlCmd, flightLogCmd, pudCmd, mediaCmd)
}
