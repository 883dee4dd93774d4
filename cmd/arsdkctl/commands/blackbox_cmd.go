package commands

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/itf"
)

var blackboxCmd = &cobra.Command{
	Use:   "enable-blackbox",
	Short: "Register a blackbox listener and print RC telemetry (spec §4.6 blackbox)",
	Long: `Stands up a blackbox listener registry and prints every notification it
receives until interrupted. The registry itself only fans out events a
caller feeds it through NotifyRCButtonAction/NotifyPilotingInfo; this
module doesn't decode live command buffers into piloting-info (the IDL
command-payload layout is out of scope), so this command mainly
demonstrates the listener lifecycle against a registry with no producer
wired up yet.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bb := itf.NewBlackboxItf()
		l := bb.CreateListener(itf.BlackboxListenerCbs{
			RCButtonAction: func(action int) {
				fmt.Printf("button action: %d\n", action)
			},
			RCPilotingInfo: func(info itf.PilotingInfo) {
				fmt.Printf("piloting info: pitch=%d roll=%d yaw=%d gaz=%d source=%d\n",
					info.Pitch, info.Roll, info.Yaw, info.Gaz, info.Source)
			},
			Unregistered: func() {
				fmt.Println("listener unregistered")
			},
		})
		defer l.Unregister()

		cli.PrintInfo("blackbox listener registered, waiting (ctrl-c to stop)...")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt)
		<-sigCh
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blackboxCmd)
}
