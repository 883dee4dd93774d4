package commands

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	netbackend "github.com/arsdkgo/arsdkctrl/pkg/backend/net"
	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
	netdisc "github.com/arsdkgo/arsdkctrl/pkg/discovery/net"
	"github.com/arsdkgo/arsdkctrl/pkg/loop"
)

var (
	monitorNetAddr string
	monitorWidth   int
	monitorHeight  int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live terminal dashboard of devices added/removed under net discovery",
	Long: `A redrawing terminal dashboard built on pkg/cli's Frame renderer,
listing devices as the net discovery variant reports them added or removed
(spec §3 Device lifecycle).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := loop.New()
		defer l.Stop()
		ctrl := controller.New(l)
		styles := cli.NewStyles(cli.DefaultTheme)

		var added, removed []string
		ctrl.SetDeviceCallbacks(
			func(d *controller.Device) {
				added = appendCapped(added, fmt.Sprintf("%s %s %s:%d", d.DeviceType, d.Name, d.Address, d.Port))
			},
			func(d *controller.Device) {
				removed = appendCapped(removed, fmt.Sprintf("%s %s", d.DeviceType, d.Name))
			},
		)

		b := netbackend.NewBackend("arsdkctl", "controller", arsdk.MinProtocolVersion, arsdk.MaxProtocolVersion)
		if err := ctrl.RegisterBackend(b); err != nil {
			return err
		}
		disc, err := netdisc.Listen(ctrl, b, monitorNetAddr)
		if err != nil {
			return err
		}
		defer disc.Stop()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)

		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-sigCh:
				fmt.Print("\033[2J\033[H")
				return nil
			case <-ticker.C:
				frame := cli.Frame{
					Styles: styles,
					Title:  "ARSDKCTL // MONITOR",
					Status: fmt.Sprintf("watching %s", monitorNetAddr),
					Sections: []cli.Section{
						{Label: "+ Added", Content: func() []string { return added }},
						{Label: "- Removed", Content: func() []string { return removed }},
					},
					Help: "ctrl-c=quit",
				}
				fmt.Print("\033[2J\033[H")
				fmt.Println(frame.Render(monitorWidth, monitorHeight))
			}
		}
	},
}

func appendCapped(lines []string, line string) []string {
	ts := time.Now().Format("15:04:05")
	lines = append(lines, fmt.Sprintf("[%s] %s", ts, line))
	if len(lines) > 50 {
		lines = lines[len(lines)-50:]
	}
	return lines
}

func init() {
	monitorCmd.Flags().StringVar(&monitorNetAddr, "net", ":44444", "listen address for net discovery")
	monitorCmd.Flags().IntVar(&monitorWidth, "width", 100, "dashboard width")
	monitorCmd.Flags().IntVar(&monitorHeight, "height", 30, "dashboard height")
	rootCmd.AddCommand(monitorCmd)
}
