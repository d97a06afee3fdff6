package cmd

import (
	"fmt"
	"strings"

	"github.com/jpfielding/dicomctl.go/pkg/dimse/pdu"
	"github.com/jpfielding/dicomctl.go/pkg/scu"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// legacy flag names from the sample scripts
var targetAliases = map[string]string{
	"server-ip":   "host",
	"server-port": "port",
	"server-ae":   "called-ae",
	"client-ae":   "calling-ae",
}

// addTargetFlags registers the SCP address flags; config values apply when a
// flag is not set
func addTargetFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("host", "", "SCP host (default from config, 10.10.0.1)")
	f.Int("port", 0, "SCP port (default from config, 4242)")
	f.String("called-ae", "", "called AE title (default from config, MERCURE)")
	f.String("calling-ae", "", "calling AE title (default from config, BEXA)")
	f.Duration("dimse-timeout", 0, "timeout for each DIMSE exchange (default from config, 300s)")
	f.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		name = strings.ReplaceAll(name, "_", "-")
		if canonical, ok := targetAliases[name]; ok {
			name = canonical
		}
		return pflag.NormalizedName(name)
	})
}

func targetFromFlags(cmd *cobra.Command) (scu.Target, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return scu.Target{}, err
	}
	d := cfg.DICOM
	t := scu.Target{
		Host:           stringFlag(cmd, "host", d.Host),
		Port:           d.Port,
		CalledAE:       stringFlag(cmd, "called-ae", d.CalledAE),
		CallingAE:      stringFlag(cmd, "calling-ae", d.CallingAE),
		ConnectTimeout: d.ConnectTimeout,
		DIMSETimeout:   d.DIMSETimeout,
		MaxPDU:         d.MaxPDU,
	}
	if cmd.Flags().Changed("port") {
		t.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("dimse-timeout") {
		t.DIMSETimeout, _ = cmd.Flags().GetDuration("dimse-timeout")
	}
	for flag, ae := range map[string]string{"called-ae": t.CalledAE, "calling-ae": t.CallingAE} {
		if err := pdu.ValidateAETitle(ae); err != nil {
			return scu.Target{}, fmt.Errorf("--%s: %w", flag, err)
		}
	}
	return t, nil
}
