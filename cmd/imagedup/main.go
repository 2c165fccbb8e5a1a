// Command imagedup manages a deduplicated image library: every image added
// is fingerprinted with a perceptual average hash and rejected when a
// near-identical image is already stored.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	imagedup "github.com/anatolykoptev/go-imagedup"
)

var (
	detector *imagedup.Detector
	recStore *imagedup.SQLiteStore

	verbose bool
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "imagedup",
	Short: "Perceptual duplicate detection for an image library",
	Long: `imagedup keeps a media library free of duplicate images.

Every image is reduced to a 64-bit average-hash fingerprint; a new image
whose fingerprint is within the configured Hamming-distance threshold of a
stored one is reported as a duplicate instead of being added.`,
	PersistentPreRunE:  initApp,
	PersistentPostRunE: closeApp,
	SilenceUsage:       true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.imagedup.yaml)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statsCmd)
}

// initApp loads configuration and wires the detector over the SQLite index
// and the library directory.
func initApp(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	viper.SetDefault("library", filepath.Join(home, ".imagedup", "media"))
	viper.SetDefault("database", filepath.Join(home, ".imagedup", "index.db"))
	viper.SetDefault("grid_size", imagedup.DefaultGridSize)
	viper.SetDefault("threshold", imagedup.DefaultThreshold)
	viper.SetDefault("max_upload_mb", 20)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".imagedup")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(home)
	}
	viper.SetEnvPrefix("IMAGEDUP")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file just means defaults.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}

	dbPath := viper.GetString("database")
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	recStore, err = imagedup.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}

	blobs, err := imagedup.NewDirBlobStore(viper.GetString("library"))
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}

	detector, err = imagedup.New(recStore, blobs, imagedup.Config{
		GridSize:       viper.GetInt("grid_size"),
		Threshold:      viper.GetInt("threshold"),
		MaxUploadBytes: viper.GetInt64("max_upload_mb") << 20,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	return nil
}

func closeApp(*cobra.Command, []string) error {
	if recStore != nil {
		return recStore.Close()
	}
	return nil
}

func getContext() context.Context {
	return context.Background()
}
