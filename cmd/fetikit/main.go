package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fetikit/config"
	"fetikit/mesh"
	"fetikit/meshio"
	"fetikit/rve"
)

var (
	// Global flags
	verbose  bool
	caseFile string
	meshFile string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fetikit",
	Short: "fetikit - FETI dynamic coupling and RVE periodicity toolkit",
	Long: `fetikit couples independently integrated structural domains through
FETI Lagrange multipliers and builds periodic boundary constraints for
representative volume elements.

Analyses are described by a YAML case file; see the config package for
the available settings.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg = zap.NewDevelopmentConfig()
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// rveCmd runs the periodicity analysis on an imported mesh
var rveCmd = &cobra.Command{
	Use:   "rve",
	Short: "Build periodic boundary constraints for an RVE mesh",
	Long: `Imports a tetrahedral mesh, detects the bounding box of the averaging
region, partitions the boundary into min/max face groups per axis and
ties opposite faces together with master-slave constraints encoding the
configured strain jump.

Example:
  fetikit rve --case rve_case.yaml --mesh cube.neu`,
	RunE: runRVE,
}

func runRVE(cmd *cobra.Command, args []string) error {
	c, err := config.Load(caseFile)
	if err != nil {
		return err
	}
	if c.RVE == nil {
		return fmt.Errorf("case file %s has no rve_settings", caseFile)
	}
	if err := c.RVE.Validate(); err != nil {
		return err
	}

	volume, err := meshio.Import(meshFile, "volume", logger)
	if err != nil {
		return err
	}
	averaging, err := resolvePart(volume, c.RVE.AveragingModelPartName)
	if err != nil {
		return err
	}
	boundary, err := resolvePart(volume, c.RVE.BoundaryModelPartName)
	if err != nil {
		return err
	}

	session, err := rve.NewSession(rve.Options{DomainSize: c.RVE.DomainSize}, logger)
	if err != nil {
		return err
	}
	if err := session.DetectBoundingBox(averaging); err != nil {
		return err
	}
	if err := session.ConstructFaceParts(boundary); err != nil {
		return err
	}

	strain, err := rve.StrainMatrix(c.RVE.DomainSize, c.RVE.Jumps())
	if err != nil {
		return err
	}
	if err := session.ApplyPeriodicity(strain, volume, boundary); err != nil {
		return err
	}

	fmt.Printf("averaging volume: %g\n", session.AveragingVolume())
	fmt.Printf("constraints: %d\n", volume.Root().NumberOfConstraints())
	if c.RVE.PrintRVEPost {
		printConstraints(volume.Root())
	}
	return nil
}

// resolvePart looks a configured model part name up on the imported
// volume: either the root itself or one of its direct sub-parts.
func resolvePart(root *mesh.ModelPart, name string) (*mesh.ModelPart, error) {
	if name == root.Name {
		return root, nil
	}
	if root.HasSubModelPart(name) {
		return root.SubModelPart(name)
	}
	return nil, fmt.Errorf("imported mesh has no model part %q", name)
}

func printConstraints(root *mesh.ModelPart) {
	for _, c := range root.Constraints() {
		fmt.Printf("node %d[%d] = node %d[%d] + %g (%s)\n",
			c.SlaveNode.ID, c.Component, c.MasterNode.ID, c.Component, c.Constant, c.Field)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rveCmd.Flags().StringVar(&caseFile, "case", "", "YAML case file (required)")
	rveCmd.Flags().StringVar(&meshFile, "mesh", "", "mesh file to import (required)")
	_ = rveCmd.MarkFlagRequired("case")
	_ = rveCmd.MarkFlagRequired("mesh")

	rootCmd.AddCommand(rveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
