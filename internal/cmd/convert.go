package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/routemeta/internal/routefile"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file or directory>",
	Short: "Convert route files between GeoJSON and GPX",
	Long: `Convert a route file, or every route file below a directory, to the other
format. Road-type segments stored in the route metadata are exported as
colored GeoJSON features.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("to", "", "Target format (geojson, gpx); default is the other format of each input")
	convertCmd.Flags().StringP("output", "o", "", "Output file, or output directory when converting a directory (default: next to the input)")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"convert.to", "to"},
		{"convert.output", "output"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, convertCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	input := args[0]
	output := viper.GetString("convert.output")

	var target routefile.Format
	if to := viper.GetString("convert.to"); to != "" {
		f, err := routefile.ParseFormat(to)
		if err != nil {
			return err
		}
		target = f
	}

	info, err := os.Stat(input)
	if err != nil {
		return fmt.Errorf("input does not exist: %s", input)
	}

	if !info.IsDir() {
		out, err := convertFile(input, output, target)
		if err != nil {
			return err
		}
		logger.Info("Conversion complete", "input", input, "output", out)
		return nil
	}

	files, err := scanRouteDirectory(input)
	if err != nil {
		return fmt.Errorf("failed to scan directory: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no route files found in %s", input)
	}

	logger.Info("Converting route files", "input_dir", input, "count", len(files))

	var failed int
	for i, path := range files {
		dest := ""
		if output != "" {
			rel, err := filepath.Rel(input, path)
			if err != nil {
				return err
			}
			dest = filepath.Join(output, rel)
		}
		out, err := convertFile(path, dest, target)
		if err != nil {
			failed++
			logger.Error("Failed to convert route", "path", path, "error", err)
			continue
		}
		logger.Debug("Converted route", "input", path, "output", out)

		if (i+1)%100 == 0 {
			logger.Info("Progress", "converted", i+1, "total", len(files))
		}
	}

	logger.Info("Conversion complete", "converted", len(files)-failed, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d route files failed to convert", failed)
	}
	return nil
}

// convertFile writes input in the target format and returns the written path.
// An empty target converts to the other format; an empty output writes next
// to the input. The output extension always matches the target.
func convertFile(input, output string, target routefile.Format) (string, error) {
	from, err := routefile.Detect(input)
	if err != nil {
		return "", err
	}
	if target == "" {
		target = routefile.FormatGPX
		if from == routefile.FormatGPX {
			target = routefile.FormatGeoJSON
		}
	}

	if output == "" {
		output = input
	}
	if f, err := routefile.Detect(output); err != nil || f != target {
		output = strings.TrimSuffix(output, filepath.Ext(output)) + target.Extension()
	}
	if output == input {
		return "", errors.New("output would overwrite the input")
	}

	route, err := routefile.ReadFile(input)
	if err != nil {
		return "", err
	}
	if err := routefile.WriteFile(output, route); err != nil {
		return "", err
	}
	return output, nil
}

// scanRouteDirectory returns all GeoJSON and GPX files below dir, sorted.
func scanRouteDirectory(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, err := routefile.Detect(path); err == nil {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
