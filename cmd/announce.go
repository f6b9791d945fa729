// Package cmd implements CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"icc.tech/aes67-agent/internal/announce"
	"icc.tech/aes67-agent/internal/sdp"
)

var announceCmd = &cobra.Command{
	Use:   "announce",
	Short: "Announce a test stream via SAP",
	Long: `Send SAP announcements for a synthetic AES67 stream.

Builds an ST 2110-30 style SDP description from the flags and multicasts
it as SAP packets. Useful for exercising discovery on receivers and
monitoring tools without real audio hardware.

Examples:
  aes67-agent announce --name "Test 5.1+ST" --channels 8 --channel-config "51,ST"
  aes67-agent announce --addr 239.69.1.100 --port 5004 --interval 30s
  aes67-agent announce --delete   # announce deletion and exit`,
	Run: func(cmd *cobra.Command, args []string) {
		runAnnounceCommand()
	},
}

var (
	annName     string
	annInfo     string
	annAddr     string
	annPort     int
	annRate     int
	annChannels int
	annEncoding string
	annPTime    float64
	annOrigin   string
	annChanCfg  string
	annPTPGM    string
	annPTPDom   int
	annSAPAddr  string
	annSAPPort  int
	annInterval time.Duration
	annCount    int
	annDelete   bool
)

func init() {
	announceCmd.Flags().StringVar(&annName, "name", "Test Stream", "session name")
	announceCmd.Flags().StringVar(&annInfo, "info", "", "session info line")
	announceCmd.Flags().StringVar(&annAddr, "addr", "239.69.1.100", "RTP multicast address")
	announceCmd.Flags().IntVar(&annPort, "port", 5004, "RTP port")
	announceCmd.Flags().IntVar(&annRate, "rate", 48000, "sample rate in Hz")
	announceCmd.Flags().IntVar(&annChannels, "channels", 2, "channel count")
	announceCmd.Flags().StringVar(&annEncoding, "encoding", "L24", "sample encoding (L16 or L24)")
	announceCmd.Flags().Float64Var(&annPTime, "ptime", 1.0, "packet time in milliseconds")
	announceCmd.Flags().StringVar(&annOrigin, "origin", "", "origin IP for o= and SAP header (default 192.168.1.100)")
	announceCmd.Flags().StringVar(&annChanCfg, "channel-config", "", `channel-order symbols, e.g. "51,ST"`)
	announceCmd.Flags().StringVar(&annPTPGM, "ptp-gm", "", "PTP grandmaster ID")
	announceCmd.Flags().IntVar(&annPTPDom, "ptp-domain", 0, "PTP domain")
	announceCmd.Flags().StringVar(&annSAPAddr, "sap-addr", "", "SAP group (default admin scope 239.255.255.255)")
	announceCmd.Flags().IntVar(&annSAPPort, "sap-port", 0, "SAP port (default 9875)")
	announceCmd.Flags().DurationVar(&annInterval, "interval", 30*time.Second, "re-announce interval")
	announceCmd.Flags().IntVar(&annCount, "count", 0, "number of announcements to send (0 = until interrupted)")
	announceCmd.Flags().BoolVar(&annDelete, "delete", false, "send a single deletion announcement and exit")
}

func runAnnounceCommand() {
	a, err := announce.New(announce.Options{
		SessionName:    annName,
		SessionInfo:    annInfo,
		MulticastAddr:  annAddr,
		Port:           annPort,
		SampleRate:     annRate,
		Channels:       annChannels,
		Encoding:       annEncoding,
		PTime:          annPTime,
		OriginIP:       annOrigin,
		PTPGrandmaster: annPTPGM,
		PTPDomain:      annPTPDom,
		ChannelConfig:  annChanCfg,
		SAPAddr:        annSAPAddr,
		SAPPort:        annSAPPort,
	})
	if err != nil {
		exitWithError("invalid announce options", err)
	}

	text := a.SDP()
	fmt.Println("SDP to announce:")
	fmt.Println(text)

	if desc := sdp.Parse(text); desc != nil {
		fmt.Printf("Conformance level: %s\n", orDash(desc.ConformanceLevel))
		fmt.Printf("Channel labels: %v\n", desc.ChannelLabels)
	}

	if annDelete {
		n, err := a.Send(true)
		if err != nil {
			exitWithError("failed to send deletion", err)
		}
		fmt.Printf("Deletion announcement sent (%d bytes).\n", n)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sent, err := a.Run(ctx, annInterval, annCount, false)
	if err != nil && ctx.Err() == nil {
		exitWithError("announcement loop failed", err)
	}
	fmt.Printf("Sent %d announcement(s).\n", sent)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
