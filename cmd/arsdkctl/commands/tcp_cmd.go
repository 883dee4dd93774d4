package commands

import (
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/arsdkgo/arsdkctrl/pkg/arsdk"
	netbackend "github.com/arsdkgo/arsdkctrl/pkg/backend/net"
	"github.com/arsdkgo/arsdkctrl/pkg/cli"
	"github.com/arsdkgo/arsdkctrl/pkg/controller"
)

var tcpSendAddr string

var tcpSendCmd = &cobra.Command{
	Use:   "tcp-send <port> <data>",
	Short: "Send raw bytes to a device port through its tcp-proxy (spec §4.7)",
	Long: `Opens a tcp-proxy to the given port on the device (spec §4.7 "Device
tcp-proxy"), writes data to it, and prints whatever the device writes back
within a short read window.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid port %q: %w", args[0], err)
		}
		data := args[1]

		b := netbackend.NewBackend("arsdkctl", "controller", arsdk.MinProtocolVersion, arsdk.MaxProtocolVersion)
		dev := &controller.Device{Address: tcpSendAddr, DeviceType: arsdk.DeviceTypeDrone}

		proxyAddr, proxyPort, err := b.TCPProxy(dev, port)
		if err != nil {
			return fmt.Errorf("open tcp-proxy: %w", err)
		}

		conn, err := net.Dial("tcp", net.JoinHostPort(proxyAddr, strconv.Itoa(proxyPort)))
		if err != nil {
			return fmt.Errorf("dial proxy: %w", err)
		}
		defer conn.Close()

		if _, err := conn.Write([]byte(data)); err != nil {
			return fmt.Errorf("write: %w", err)
		}

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		buf := make([]byte, 4096)
		n, err := conn.Read(buf)
		if err != nil && err != io.EOF {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				cli.PrintInfo("no response within the read window")
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("%s\n", buf[:n])
		return nil
	},
}

func init() {
	tcpSendCmd.Flags().StringVar(&tcpSendAddr, "addr", "", "device address")
	tcpSendCmd.MarkFlagRequired("addr")
	rootCmd.AddCommand(tcpSendCmd)
}
