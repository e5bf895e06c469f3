/*
Example program tracking a face from a camera and periodically verifying it
against a reference image using the DeepFace API
*/
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is the application version
const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:     "facewatch",
	Short:   "Live face tracking with asynchronous identity verification",
	Version: Version,
	Long: `Facewatch captures frames from a camera, tracks the most prominent face
and checks it against a reference image every few frames on a background
worker, overlaying a MATCH or NO MATCH label on the live video.`,
	SilenceUsage: true,
}

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
