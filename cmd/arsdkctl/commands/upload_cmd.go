package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/ftp"
	"github.com/arsdkgo/arsdkctrl/pkg/itf"
	"github.com/arsdkgo/arsdkctrl/pkg/kv"
)

var (
	uploadAddr     string
	uploadPort     int
	uploadCacheDir string
	updateManifest string
)

func addUploadTargetFlags(c *cobra.Command) {
	c.Flags().StringVar(&uploadAddr, "addr", "", "device address")
	c.Flags().IntVar(&uploadPort, "port", 21, "FTP control port")
	c.MarkFlagRequired("addr")
}

// ephemerisCache opens the synced-MD5 cache store: badger-backed if
// --cache-dir is set, otherwise an in-memory store scoped to this process
// (skips re-uploads only within a single run).
func ephemerisCache(dir string) (kv.Store, error) {
	if dir == "" {
		return kv.NewMemory(nil), nil
	}
	return kv.NewBadger(kv.BadgerOptions{Dir: dir})
}

var ephemerisCmd = &cobra.Command{
	Use:   "ephemeris <local-path>",
	Short: "Upload a GPS ephemeris file (spec §4.6 ephemeris)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		cache, err := ephemerisCache(uploadCacheDir)
		if err != nil {
			return fmt.Errorf("open ephemeris cache: %w", err)
		}
		defer cache.Close()
		done := make(chan error, 1)
		itf.StartEphemerisUpload(pool, uploadAddr, uploadPort, args[0], arsdk.DeviceTypeDrone, cache, uploadAddr,
			func(percent float32) { fmt.Printf("\r%s", cli.FormatProgress(percent, 20)) },
			func(status itf.Status, err error) {
				fmt.Println()
				if status != itf.StatusOK {
					done <- fmt.Errorf("ephemeris upload finished with status %s: %v", status, err)
					return
				}
				done <- nil
			})
		if err := <-done; err != nil {
			return err
		}
		cli.PrintSuccess("ephemeris uploaded")
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <local-path>",
	Short: "Upload a firmware image (spec §4.6 updater)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool := ftp.NewPool(ftp.DefaultCredentials)
		defer pool.Close()
		done := make(chan error, 1)
		onProgress := func(percent float32) { fmt.Printf("\r%s", cli.FormatProgress(percent, 20)) }
		onComplete := func(status itf.Status, err error) {
			fmt.Println()
			if status != itf.StatusOK {
				done <- fmt.Errorf("firmware upload finished with status %s: %v", status, err)
				return
			}
			done <- nil
		}

		if updateManifest != "" {
			if _, err := itf.StartFirmwareUploadWithManifest(pool, uploadAddr, uploadPort, args[0], updateManifest,
				arsdk.DeviceTypeDrone, onProgress, onComplete); err != nil {
				return fmt.Errorf("refusing firmware upload: %w", err)
			}
		} else {
			itf.StartFirmwareUpload(pool, uploadAddr, uploadPort, args[0], arsdk.DeviceTypeDrone, onProgress, onComplete)
		}

		if err := <-done; err != nil {
			return err
		}
		cli.PrintSuccess("firmware uploaded")
		return nil
	},
}

func init() {
	addUploadTargetFlags(ephemerisCmd)
	addUploadTargetFlags(updateCmd)
	ephemerisCmd.Flags().StringVar(&uploadCacheDir, "cache-dir", "", "badger directory caching the last-synced ephemeris MD5 (in-memory if unset)")
	updateCmd.Flags().StringVar(&updateManifest, "manifest", "", "validate a firmware-info manifest JSON file before uploading")
	rootCmd.AddCommand(ephemerisCmd, updateCmd)
}
