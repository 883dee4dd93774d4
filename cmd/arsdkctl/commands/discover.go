package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	muxbackend "github.com/arsdkgo/arsdkctrl/pkg/backend/mux"
	netbackend "github.com/arsdkgo/arsdkctrl/pkg/backend/net"
	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
	avahidisc "github.com/arsdkgo/arsdkctrl/pkg/discovery/avahi"
	muxdisc "github.com/arsdkgo/arsdkctrl/pkg/discovery/mux"
	netdisc "github.com/arsdkgo/arsdkctrl/pkg/discovery/net"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
	arsmux "github.com/arsdkgo/arsdkctrl/pkg/mux"
)

var (
	discoverAvahi   bool
	discoverNetAddr string
	discoverMuxAddr string
	discoverTimeout time.Duration
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Watch for devices using one discovery variant (spec §3 Discovery)",
	Long: `Brings up exactly one discovery variant and prints every device seen
within the watch window.

Examples:
  arsdkctl discover --net :44444
  arsdkctl discover --avahi
  arsdkctl discover --mux tcp://192.168.42.1:1883`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := loop.New()
		defer l.Stop()
		ctrl := controller.New(l)

		var devices []*controller.Device
		ctrl.SetDeviceCallbacks(func(d *controller.Device) {
			devices = append(devices, d)
			fmt.Printf("+ %-8s %-20s %s:%d (id=%s)\n", d.DeviceType, d.Name, d.Address, d.Port, d.ID)
		}, nil)

		stop, err := startDiscovery(ctrl)
		if err != nil {
			return err
		}
		defer stop()

		cli.PrintInfo("watching for %s...", discoverTimeout)
		time.Sleep(discoverTimeout)

		if len(devices) == 0 {
			cli.PrintWarning("no devices seen")
		}
		return nil
	},
}

// startDiscovery brings up exactly one of the net/mux/avahi discovery
// variants, selected by flags, and returns a stop function.
func startDiscovery(ctrl *controller.Controller) (func(), error) {
	switch {
	case discoverNetAddr != "":
		b := netbackend.NewBackend("arsdkctl", "controller", arsdk.MinProtocolVersion, arsdk.MaxProtocolVersion)
		if err := ctrl.RegisterBackend(b); err != nil {
			return nil, err
		}
		d, err := netdisc.Listen(ctrl, b, discoverNetAddr)
		if err != nil {
			return nil, err
		}
		return func() { d.Stop() }, nil

	case discoverAvahi:
		b := netbackend.NewBackend("arsdkctl", "controller", arsdk.MinProtocolVersion, arsdk.MaxProtocolVersion)
		if err := ctrl.RegisterBackend(b); err != nil {
			return nil, err
		}
		d, err := avahidisc.Listen(ctrl, b, avahidisc.DefaultGroup, nil)
		if err != nil {
			return nil, err
		}
		return func() { d.Stop() }, nil

	case discoverMuxAddr != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := arsmux.Dial(ctx, arsmux.DialConfig{Addr: discoverMuxAddr, ClientID: "arsdkctl"})
		if err != nil {
			return nil, fmt.Errorf("dial mux bridge: %w", err)
		}
		b := muxbackend.NewBackend("arsdkctl", "controller", conn)
		if err := ctrl.RegisterBackend(b); err != nil {
			conn.Close()
			return nil, err
		}
		d, err := muxdisc.Start(ctrl, b, conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return func() { d.Stop(); conn.Close() }, nil

	default:
		return nil, fmt.Errorf("specify exactly one of --net, --avahi, --mux")
	}
}

func init() {
	discoverCmd.Flags().BoolVar(&discoverAvahi, "avahi", false, "use avahi (multicast) discovery")
	discoverCmd.Flags().StringVar(&discoverNetAddr, "net", "", "listen address for net discovery, e.g. :44444")
	discoverCmd.Flags().StringVar(&discoverMuxAddr, "mux", "", "mux broker address to bridge to, e.g. tcp://192.168.42.1:1883")
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 10*time.Second, "how long to watch for devices")
	rootCmd.AddCommand(discoverCmd)
}
