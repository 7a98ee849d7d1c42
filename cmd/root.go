package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sells-group/geoalarm/internal/config"
)

var (
	cfg   *config.Config
	vcfg  *viper.Viper
	cfgFn string
)

var rootCmd = &cobra.Command{
	Use:   "geoalarm",
	Short: "Geofence alarm engine",
	Long:  "Stores circular geofences, keeps them registered with the platform geofencing service, evaluates device positions against them and raises alarms on entry.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := config.NewViper()
		if cfgFn != "" {
			v.SetConfigFile(cfgFn)
		}
		c, err := config.LoadWithViper(v)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c
		vcfg = v

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFn, "config", "", "config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
