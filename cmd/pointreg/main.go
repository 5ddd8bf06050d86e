// Command pointreg performs correspondence-based rigid point cloud
// registration between two whitespace-delimited XYZ files.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.viam.com/pointreg/logging"
	"go.viam.com/pointreg/pointcloud"
	"go.viam.com/pointreg/registration"
	"go.viam.com/pointreg/robin"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pointreg:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		srcPath    = flag.String("src", "", "path to source XYZ point cloud")
		tgtPath    = flag.String("tgt", "", "path to target XYZ point cloud")
		voxelSize  = flag.Float64("voxel", 0.1, "voxel size for downsampling and noise bounds")
		useQuatro  = flag.Bool("quatro", false, "use the 2-DoF yaw-only Quatro rotation solver")
		robinMode  = flag.String("robin-mode", "max-core", "outlier pruning mode: none, max-core, max-clique")
		debug      = flag.Bool("debug", false, "enable debug-level logging")
	)
	flag.Parse()

	if *srcPath == "" || *tgtPath == "" {
		return fmt.Errorf("both -src and -tgt are required")
	}

	src, err := readXYZ(*srcPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *srcPath, err)
	}
	tgt, err := readXYZ(*tgtPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", *tgtPath, err)
	}

	cfg := registration.DefaultConfig(*voxelSize)
	cfg.UseQuatro = *useQuatro
	switch *robinMode {
	case "none":
		cfg.RobinMode = robin.None
	case "max-core":
		cfg.RobinMode = robin.MaxKCore
	case "max-clique":
		cfg.RobinMode = robin.MaxClique
	default:
		return fmt.Errorf("unknown -robin-mode %q", *robinMode)
	}

	logger := logging.NewLogger("pointreg")
	if *debug {
		logger.SetLevel(logging.DEBUG)
	}
	cfg.Logger = logger

	pipeline, err := registration.New(cfg)
	if err != nil {
		return fmt.Errorf("building pipeline: %w", err)
	}

	sol, err := pipeline.Estimate(context.Background(), src, tgt)
	if err != nil {
		return fmt.Errorf("estimate: %w", err)
	}

	report := pipeline.ScoreReport()
	timings := pipeline.Timings()

	if !sol.Valid {
		fmt.Println("registration failed: insufficient inlier support")
		fmt.Printf("initial pairs=%d pruned=%d rot_inliers=%d trans_inliers=%d\n",
			report.InitialPairs, report.PrunedPairs, report.RotInliers, report.TransInliers)
		return nil
	}

	fmt.Println("rotation:")
	for i := 0; i < 3; i++ {
		fmt.Printf("  [%8.5f %8.5f %8.5f]\n", sol.R.At(i, 0), sol.R.At(i, 1), sol.R.At(i, 2))
	}
	fmt.Printf("translation: [%8.5f %8.5f %8.5f]\n", sol.T.X, sol.T.Y, sol.T.Z)
	fmt.Printf("initial pairs=%d pruned=%d rot_inliers=%d trans_inliers=%d\n",
		report.InitialPairs, report.PrunedPairs, report.RotInliers, report.TransInliers)
	fmt.Printf("timings: extraction=%s matching=%s rejection=%s solving=%s total=%s\n",
		timings.Extraction, timings.Matching, timings.Rejection, timings.Solving, timings.Total)

	return nil
}

func readXYZ(path string) (pointcloud.Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cloud pointcloud.Cloud
	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected 3 coordinates, got %d", lineNum, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		z, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		cloud = append(cloud, pointcloud.NewVector(x, y, z))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cloud, nil
}
