package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geoalarm/internal/model"
	"github.com/sells-group/geoalarm/pkg/locator"
)

var checkAt string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check whether the device is inside any stored geofence",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts envOptions
		if checkAt != "" {
			pos, err := parsePosition(checkAt)
			if err != nil {
				return err
			}
			opts.Locator = locator.StaticClient{Position: &pos}
		}

		env, err := initApp(cmd.Context(), cfg, "cli", opts)
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.Engine.CheckNow(cmd.Context())
		fmt.Fprintln(cmd.OutOrStdout(), res.Status)
		return nil
	},
}

// parsePosition reads "lat,lon".
func parsePosition(s string) (model.Position, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return model.Position{}, eris.Errorf("position %q must be lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return model.Position{}, eris.Wrapf(err, "parse latitude %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return model.Position{}, eris.Wrapf(err, "parse longitude %q", lonStr)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Position{}, eris.Errorf("position %q out of range", s)
	}
	return model.Position{Latitude: lat, Longitude: lon}, nil
}

func httpClient(timeoutSecs int) *http.Client {
	return &http.Client{Timeout: time.Duration(timeoutSecs) * time.Second}
}

func init() {
	checkCmd.Flags().StringVar(&checkAt, "at", "", "evaluate this lat,lon instead of asking the location provider")
	rootCmd.AddCommand(checkCmd)
}
