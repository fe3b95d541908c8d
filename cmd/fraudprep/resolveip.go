package main

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/spf13/cobra"

	"fraudprep/internal/geo"
	"fraudprep/internal/normalize"
)

func newResolveIPCmd() *cobra.Command {
	var (
		flags pathFlags
		mmdb  string
	)
	cmd := &cobra.Command{
		Use:   "resolve-ip <ip>...",
		Short: "Look up the country of individual addresses",
		Long: "Look up the country of individual addresses. Each argument is a dotted IPv4\n" +
			"address or the integer form used by the transaction export.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.load()
			if err != nil {
				return err
			}

			var loc geo.Locator
			if mmdb != "" {
				m, err := geo.OpenMMDB(mmdb)
				if err != nil {
					return err
				}
				defer m.Close()
				loc = m
			} else {
				idx, err := loadIndex(cmd.Context(), p)
				if err != nil {
					return err
				}
				loc = idx
			}

			w := cmd.OutOrStdout()
			for _, a := range args {
				ip, err := parseIPArg(a)
				if err != nil {
					return err
				}
				r, ok := loc.Locate(ip)
				country := r.Country
				if r.NoCountry {
					country = "-"
				}
				switch {
				case !ok:
					fmt.Fprintf(w, "%s\t%d\tunmatched\n", a, ip)
				case mmdb != "":
					fmt.Fprintf(w, "%s\t%d\t%s\n", a, ip, country)
				default:
					fmt.Fprintf(w, "%s\t%d\t%s\t[%d, %d]\n", a, ip, country, r.Lower, r.Upper)
				}
			}
			return nil
		},
	}
	flags.registerRanges(cmd)
	cmd.Flags().StringVar(&mmdb, "mmdb", "", "look up in a compiled database instead of the range CSV")
	return cmd
}

// parseIPArg accepts dotted IPv4 or the integer encoding.
func parseIPArg(s string) (int64, error) {
	if ip := net.ParseIP(s); ip != nil {
		v4 := ip.To4()
		if v4 == nil {
			return 0, fmt.Errorf("%s: only IPv4 addresses are supported", s)
		}
		return int64(binary.BigEndian.Uint32(v4)), nil
	}
	ip, err := normalize.ParseIP(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", s, err)
	}
	return ip, nil
}
