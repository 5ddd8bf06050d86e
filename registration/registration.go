// Package registration implements C5, the pipeline façade: it orchestrates
// C1 (pfh) -> C2 (corr) -> C3 (robin) -> C4 (solve) behind Match/Estimate,
// and tracks phase timings and correspondence/inlier counts the way the
// source's KISSMatcher reports them.
package registration

import (
	"context"
	"time"

	"github.com/golang/geo/r3"

	"go.viam.com/pointreg/corr"
	"go.viam.com/pointreg/logging"
	"go.viam.com/pointreg/pfh"
	"go.viam.com/pointreg/pointcloud"
	"go.viam.com/pointreg/robin"
	"go.viam.com/pointreg/solve"
	"go.viam.com/pointreg/spatialmath"
	"go.viam.com/pointreg/utils"
)

// Config is the pipeline's full enumerated configuration set.
type Config struct {
	VoxelSize        float64
	UseVoxelSampling bool
	NormalRadius     float64
	FPFHRadius       float64
	ThrLinearity     float64
	RobinNoiseBound  float64
	NumMaxCorr       int
	TupleScale       float64
	RobinMode        robin.Mode
	UseRatioTest     bool
	UseQuatro        bool
	SolverNoiseBound float64
	SensorOrigin     *r3.Vector
	Seed             int64
	Logger           logging.Logger
}

// DefaultConfig returns a Config with every voxel_size-relative default from
// the external-interfaces table applied, given a required voxel size.
func DefaultConfig(voxelSize float64) Config {
	return Config{
		VoxelSize:        voxelSize,
		UseVoxelSampling: true,
		NormalRadius:     2 * voxelSize,
		FPFHRadius:       5 * voxelSize,
		ThrLinearity:     1.0,
		RobinNoiseBound:  2 * voxelSize,
		NumMaxCorr:       5000,
		TupleScale:       0.95,
		RobinMode:        robin.MaxKCore,
		UseRatioTest:     false,
		UseQuatro:        false,
		SolverNoiseBound: 2 * voxelSize,
	}
}

// Validate checks Config fields for construction-time errors, returning a
// *utils.ConfigurationError on the first violation found.
func (c Config) Validate() error {
	if c.VoxelSize <= 0 {
		return utils.NewConfigurationError("voxel_size", "must be positive")
	}
	if c.NormalRadius <= 0 {
		return utils.NewConfigurationError("normal_radius", "must be positive")
	}
	if c.FPFHRadius <= 0 {
		return utils.NewConfigurationError("fpfh_radius", "must be positive")
	}
	if c.RobinNoiseBound <= 0 {
		return utils.NewConfigurationError("robin_noise_bound", "must be positive")
	}
	if c.SolverNoiseBound <= 0 {
		return utils.NewConfigurationError("solver_noise_bound", "must be positive")
	}
	if c.TupleScale != 0 && (c.TupleScale <= 0 || c.TupleScale >= 1) {
		return utils.NewConfigurationError("tuple_scale", "must be 0 or in (0, 1)")
	}
	if c.NumMaxCorr < 0 {
		return utils.NewConfigurationError("num_max_corr", "must be non-negative")
	}
	return nil
}

// state is the façade's lifecycle marker, per the RESET -> FITTED state
// machine.
type state int

const (
	stateReset state = iota
	stateFitted
)

// Timings reports per-phase elapsed time from the most recent Match/Estimate
// call.
type Timings struct {
	Extraction time.Duration
	Matching   time.Duration
	Rejection  time.Duration
	Solving    time.Duration
	Total      time.Duration
}

// Score reports correspondence and inlier counts from the most recent
// Match/Estimate call, generalizing the source's KISSMatcherScore.
type Score struct {
	InitialPairs int
	PrunedPairs  int
	RotInliers   int
	TransInliers int
}

// Pipeline is the exclusive-ownership façade over C1-C4. All intermediate
// buffers are owned by the Pipeline, cleared at the start of each Match
// call; accessors are valid only after the call whose results they
// describe. A Pipeline is not safe for concurrent use by multiple
// goroutines, but distinct Pipeline instances may run concurrently.
type Pipeline struct {
	cfg    Config
	state  state
	logger logging.Logger

	timings Timings
	score   Score

	srcMatched pointcloud.Cloud
	tgtMatched pointcloud.Cloud

	lastSolution solve.Solution
}

// New validates cfg and constructs a Pipeline, starting in the RESET state.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("registration")
	}
	return &Pipeline{cfg: cfg, state: stateReset, logger: logger}, nil
}

// Reset clears all intermediate buffers and timing/score accessors,
// returning the Pipeline to the RESET state.
func (p *Pipeline) Reset() {
	p.state = stateReset
	p.timings = Timings{}
	p.score = Score{}
	p.srcMatched = nil
	p.tgtMatched = nil
	p.lastSolution = solve.Solution{}
}

// Match runs C1->C2->C3 over S and T, returning the aligned coordinate
// sequences of surviving correspondences in the caller's (source, target)
// frame.
func (p *Pipeline) Match(ctx context.Context, S, T pointcloud.Cloud) (pointcloud.Cloud, pointcloud.Cloud, error) {
	p.Reset()
	start := time.Now()

	srcCloud, tgtCloud := S, T
	if p.cfg.UseVoxelSampling {
		srcCloud = pointcloud.DownsampleVoxelGrid(S, p.cfg.VoxelSize)
		tgtCloud = pointcloud.DownsampleVoxelGrid(T, p.cfg.VoxelSize)
	}

	extractionStart := time.Now()
	pfhCfg := pfh.Config{
		NormalRadius: p.cfg.NormalRadius,
		FPFHRadius:   p.cfg.FPFHRadius,
		ThrLinearity: p.cfg.ThrLinearity,
		MinNeighbors: 4,
		SensorOrigin: p.cfg.SensorOrigin,
	}
	srcResult, err := pfh.Compute(ctx, srcCloud, pfhCfg, p.logger.Sublogger("pfh"))
	if err != nil {
		return nil, nil, err
	}
	tgtResult, err := pfh.Compute(ctx, tgtCloud, pfhCfg, p.logger.Sublogger("pfh"))
	if err != nil {
		return nil, nil, err
	}
	p.timings.Extraction = time.Since(extractionStart)

	if len(srcResult.Keypoints) == 0 || len(tgtResult.Keypoints) == 0 {
		p.timings.Total = time.Since(start)
		return pointcloud.Cloud{}, pointcloud.Cloud{}, nil
	}

	matchStart := time.Now()
	corrMode := corr.None
	if p.cfg.RobinMode != robin.None {
		corrMode = corr.Mode(p.cfg.RobinMode)
	}
	corrCfg := corr.Config{
		Mode:         corrMode,
		UseRatioTest: p.cfg.UseRatioTest,
		TupleScale:   p.cfg.TupleScale,
		NumMaxCorr:   p.cfg.NumMaxCorr,
		Seed:         p.cfg.Seed,
	}
	correspondences, err := corr.EstablishCorrespondences(
		ctx, srcResult.Keypoints, tgtResult.Keypoints, srcResult.Descriptors, tgtResult.Descriptors,
		corrCfg, p.logger.Sublogger("corr"),
	)
	if err != nil {
		return nil, nil, err
	}
	p.timings.Matching = time.Since(matchStart)
	p.score.InitialPairs = len(correspondences)

	rejectionStart := time.Now()
	robinCfg := robin.Config{Mode: p.cfg.RobinMode, NoiseBound: p.cfg.RobinNoiseBound}
	pruned := robin.Prune(ctx, correspondences, srcResult.Keypoints, tgtResult.Keypoints, robinCfg, p.logger.Sublogger("robin"))
	p.timings.Rejection = time.Since(rejectionStart)
	p.score.PrunedPairs = len(pruned)

	srcMatched := make(pointcloud.Cloud, len(pruned))
	tgtMatched := make(pointcloud.Cloud, len(pruned))
	for i, c := range pruned {
		srcMatched[i] = srcResult.Keypoints[c.I]
		tgtMatched[i] = tgtResult.Keypoints[c.J]
	}
	p.srcMatched = srcMatched
	p.tgtMatched = tgtMatched
	p.timings.Total = time.Since(start)
	p.state = stateFitted

	return srcMatched, tgtMatched, nil
}

// Estimate runs Match followed by C4, returning the resulting
// RegistrationSolution.
func (p *Pipeline) Estimate(ctx context.Context, S, T pointcloud.Cloud) (solve.Solution, error) {
	srcMatched, tgtMatched, err := p.Match(ctx, S, T)
	if err != nil {
		return solve.InvalidIdentity(), err
	}

	if len(srcMatched) < 2 {
		p.lastSolution = solve.InvalidIdentity()
		return p.lastSolution, nil
	}

	solveStart := time.Now()
	solveCfg := solve.Config{NoiseBound: p.cfg.SolverNoiseBound, UseQuatro: p.cfg.UseQuatro}
	sol := solve.Solve(srcMatched, tgtMatched, solveCfg, p.logger.Sublogger("solve"))
	p.timings.Solving = time.Since(solveStart)
	p.timings.Total += p.timings.Solving
	p.lastSolution = sol
	p.score.RotInliers = len(sol.RotInliers)
	p.score.TransInliers = len(sol.TransInliers)

	return sol, nil
}

// Timings returns the phase timings from the most recent Match/Estimate
// call. Valid only after such a call; zeroed otherwise.
func (p *Pipeline) Timings() Timings {
	return p.timings
}

// ScoreReport returns the correspondence/inlier counts from the most recent
// Match/Estimate call. Valid only after such a call; zeroed otherwise.
func (p *Pipeline) ScoreReport() Score {
	return p.score
}

// LastSolution returns the RegistrationSolution from the most recent
// Estimate call, and its orientation as a quaternion/rotation-matrix view.
func (p *Pipeline) LastSolution() (solve.Solution, spatialmath.Orientation) {
	sol := p.lastSolution
	if sol.R == nil {
		sol = solve.InvalidIdentity()
	}
	return sol, spatialmath.NewOrientationFromRotationMatrix(sol.R)
}
