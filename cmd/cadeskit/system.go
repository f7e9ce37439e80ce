package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sensiblebit/cadeskit"
	"github.com/sensiblebit/cadeskit/plugin"
)

var resetCache bool

var systemInfoCmd = &cobra.Command{
	Use:   "system-info",
	Short: "Show the plugin and CSP versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := pluginClient()
		if err != nil {
			return err
		}
		info, err := c.GetSystemInfo(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd, info, func(sb *strings.Builder) {
			fmt.Fprintf(sb, "Plugin version:   %s\n", info.CadesVersion)
			fmt.Fprintf(sb, "CSP version:      %s\n", orNone(info.CSPVersion))
			fmt.Fprintf(sb, "CSP:              %s\n", orNone(info.CryptoProviderName))
			fmt.Fprintf(sb, "CryptoPro CSP:    %s\n", yesNo(info.CryptoProInstalled))
			fmt.Fprintf(sb, "ViPNet CSP:       %s\n", yesNo(info.VipNetInstalled))
		})
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the installed cryptographic providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := pluginClient()
		if err != nil {
			return err
		}
		providers, err := c.GetCryptoProviders(cmd.Context(), resetCache)
		if err != nil {
			return err
		}
		return printResult(cmd, providers, func(sb *strings.Builder) {
			for _, p := range providers {
				fmt.Fprintf(sb, "%-70s type %-3d %d.%d.%d\n", p.Name, p.Type, p.MajorVersion, p.MinorVersion, p.BuildVersion)
			}
		})
	},
}

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "Show the CryptoPro CSP, TSP and OCSP license state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := pluginClient()
		if err != nil {
			return err
		}
		state, err := c.GetLicensesState(cmd.Context(), resetCache)
		if err != nil {
			return err
		}
		return printResult(cmd, state, func(sb *strings.Builder) {
			for _, l := range []struct {
				product string
				lic     *plugin.License
			}{{"CSP", state.CSP}, {"TSP", state.TSP}, {"OCSP", state.OCSP}} {
				if l.lic == nil {
					fmt.Fprintf(sb, "%-5s not installed\n", l.product)
					continue
				}
				fmt.Fprintf(sb, "%-5s valid: %-3s until %s  %s  %s\n", l.product, yesNo(l.lic.IsValid), orNone(l.lic.ValidTo), l.lic.SerialNumber, l.lic.CompanyName)
			}
		})
	},
}

var readersCmd = &cobra.Command{
	Use:   "readers",
	Short: "List the card readers known to CryptoPro CSP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := pluginClient()
		if err != nil {
			return err
		}
		readers, err := c.GetReaders(cmd.Context(), resetCache)
		if err != nil {
			return err
		}
		return printResult(cmd, readers, func(sb *strings.Builder) {
			if len(readers) == 0 {
				sb.WriteString("No readers found\n")
			}
			for _, r := range readers {
				fmt.Fprintf(sb, "%s (%s) media: %s flags: %#x\n", r.Name, r.NickName, orNone(r.Media), r.CarrierFlags)
			}
		})
	},
}

type checkResult struct {
	Valid bool   `json:"valid" yaml:"valid"`
	Code  string `json:"code,omitempty" yaml:"code,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the plugin and CSP installation",
	Long: `Run the system validation: the plugin must be at least 2.0.13292, a CryptoPro
or ViPNet CSP must be installed, and CryptoPro CSP at least 4.0.9971. A failing
check exits non-zero.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := pluginClient()
		if err != nil {
			return err
		}
		checkErr := c.CheckIsValidSystemSetup(cmd.Context())
		res := checkResult{Valid: checkErr == nil}
		if checkErr != nil {
			res.Error = checkErr.Error()
			var e *cadeskit.Error
			if errors.As(checkErr, &e) {
				res.Code = e.Code
			}
		}
		if err := printResult(cmd, res, func(sb *strings.Builder) {
			if res.Valid {
				sb.WriteString("System setup is valid\n")
				return
			}
			fmt.Fprintf(sb, "System setup is invalid: %s\n", res.Error)
		}); err != nil {
			return err
		}
		return checkErr
	},
}

func init() {
	for _, cmd := range []*cobra.Command{providersCmd, licensesCmd, readersCmd} {
		cmd.Flags().BoolVar(&resetCache, "reset", false, "Ignore cached results")
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
