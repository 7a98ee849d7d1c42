package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geoalarm/internal/geo"
)

var (
	addLat    float64
	addLon    float64
	addRadius float64

	listGeoJSON  bool
	listSegments int
	clearConfirm bool
	importFile   string
)

var geofenceCmd = &cobra.Command{
	Use:     "geofence",
	Aliases: []string{"gf"},
	Short:   "Manage stored geofences",
	Long: `Manage stored geofences directly in the configured database.

A running "geoalarm serve" loads the geofences once at startup and is the only
writer from then on. Changes made here while it runs against the same database
are not seen by it: they are neither registered nor evaluated, and deleting
through the API will not find them. Stop the server first, or use the HTTP API
(/v1/geofences) while it is running.`,
}

var geofenceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Save a geofence and check whether the device is already inside it",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), cfg, "cli", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Engine.SaveGeofence(cmd.Context(), addLat, addLon, addRadius)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "saved geofence %d\n", res.Geofence.ID)
		if res.Inside != nil && *res.Inside {
			fmt.Fprintln(out, "device is inside the new geofence")
		}
		return nil
	},
}

var geofenceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored geofences",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context(), cfg, "cli", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		set, err := env.Engine.ListGeofences(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if listGeoJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(geo.FeatureCollection(set, listSegments)), "encode geojson")
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tLATITUDE\tLONGITUDE\tRADIUS (m)")
		for _, g := range set.Geofences {
			fmt.Fprintf(tw, "%d\t%.6f\t%.6f\t%.1f\n", g.ID, g.Latitude, g.Longitude, g.Radius)
		}
		return tw.Flush()
	},
}

var geofenceRmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete geofences by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]int64, 0, len(args))
		for _, a := range args {
			id, err := strconv.ParseInt(a, 10, 64)
			if err != nil || id <= 0 {
				return eris.Errorf("invalid geofence id %q", a)
			}
			ids = append(ids, id)
		}

		env, err := initApp(cmd.Context(), cfg, "cli", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		for _, id := range ids {
			if err := env.Engine.DeleteGeofence(cmd.Context(), id); err != nil {
				return err
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d geofence(s)\n", len(ids))
		return nil
	},
}

var geofenceClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored geofence",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearConfirm {
			return eris.New("refusing to clear geofences without --yes")
		}
		env, err := initApp(cmd.Context(), cfg, "cli", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Engine.ClearGeofences(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "cleared all geofences")
		return nil
	},
}

var geofenceImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import geofences from a YAML file",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return eris.Wrap(err, "open import file")
		}
		defer f.Close() //nolint:errcheck

		env, err := initApp(cmd.Context(), cfg, "cli", envOptions{})
		if err != nil {
			return err
		}
		defer env.Close()

		ids, err := env.Engine.ImportGeofences(cmd.Context(), f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d geofence(s)\n", len(ids))
		return nil
	},
}

func init() {
	geofenceAddCmd.Flags().Float64Var(&addLat, "lat", 0, "center latitude")
	geofenceAddCmd.Flags().Float64Var(&addLon, "lon", 0, "center longitude")
	geofenceAddCmd.Flags().Float64Var(&addRadius, "radius", 0, "radius in meters")
	_ = geofenceAddCmd.MarkFlagRequired("lat")
	_ = geofenceAddCmd.MarkFlagRequired("lon")
	_ = geofenceAddCmd.MarkFlagRequired("radius")

	geofenceListCmd.Flags().BoolVar(&listGeoJSON, "geojson", false, "print a GeoJSON FeatureCollection")
	geofenceListCmd.Flags().IntVar(&listSegments, "segments", 0, "render circles as polygons with this many segments (0 = points)")

	geofenceClearCmd.Flags().BoolVar(&clearConfirm, "yes", false, "confirm deleting every geofence")

	geofenceImportCmd.Flags().StringVar(&importFile, "file", "", "YAML file with a geofences list")
	_ = geofenceImportCmd.MarkFlagRequired("file")

	geofenceCmd.AddCommand(geofenceAddCmd, geofenceListCmd, geofenceRmCmd, geofenceClearCmd, geofenceImportCmd)
	rootCmd.AddCommand(geofenceCmd)
}
