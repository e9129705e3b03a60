/*

Bsample samples posterior distributions of the worked Bayesian
models with Gibbs and Metropolis-Hastings samplers, summarizes the
chains with credible intervals and computes Laplace approximations.

Sample the Beta-Binomial model with random walk Metropolis-Hastings:

	bsample mh betabinom --iter 50000 --burnin 5000 --sd 0.1

Run the pumps model with Gibbs, four chains, storing the run:

	bsample gibbs pumps --chains 4 --db runs.db --key pumps

and summarize it again later:

	bsample summary pumps --db runs.db --burnin 2000

To see all the options run:

	bsample --help

*/
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"bitbucket.org/Davydov/bsample/diagnostics"
	"bitbucket.org/Davydov/bsample/models"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("bsample")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("bsample", "Bayesian posterior sampler").Version(version)

	configF = app.Flag("config", "YAML run file with model data and settings").String()

	// sampler parameters
	iterations    = app.Flag("iter", "number of iterations").Default("0").Int()
	burnIn        = app.Flag("burnin", "number of iterations to discard").Default("-1").Int()
	chains        = app.Flag("chains", "number of independent chains").Default("0").Int()
	proposal      = app.Flag("proposal", "random walk kernel (normal, uniform, lognormal)").String()
	sd            = app.Flag("sd", "proposal sd, repeat for every parameter").Float64List()
	scale         = app.Flag("scale", "proposal scale multiplier").Default("0").Float64()
	componentwise = app.Flag("componentwise", "update one parameter at a time").Bool()
	report        = app.Flag("report", "report every N iterations").Default("0").Int()
	accept        = app.Flag("accept", "report acceptance rate every N iterations").Default("0").Int()
	level         = app.Flag("level", "credible interval coverage").Default("0").Float64()

	// adaptive mcmc parameters
	adaptive = app.Flag("adaptive", "use adaptive MCMC").Bool()
	maxAdapt = app.Flag("maxadapt", "stop adapting after iteration (20% by default)").Default("-1").Int()
	target   = app.Flag("target", "target acceptance rate for adaptive MCMC").Default("0").Float64()

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	seed       = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// input/output
	outLogF  = app.Flag("log", "write log to a file").String()
	outF     = app.Flag("out", "write the trace of the first chain to a file").String()
	plotF    = app.Flag("plot", "write trace and histogram plots with this prefix").String()
	dbF      = app.Flag("db", "bolt database for checkpoints and runs").String()
	key      = app.Flag("key", "run key in the database, sampler-model-seed by default").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()

	// commands
	mhCmd   = app.Command("mh", "random walk Metropolis-Hastings")
	mhModel = mhCmd.Arg("model", "model ("+strings.Join(models.Names(), ", ")+")").String()

	gibbsCmd   = app.Command("gibbs", "Gibbs sampler")
	gibbsModel = gibbsCmd.Arg("model", "model ("+strings.Join(models.Names(), ", ")+")").String()

	laplaceCmd    = app.Command("laplace", "Laplace approximation")
	laplaceModel  = laplaceCmd.Arg("model", "model ("+strings.Join(models.Names(), ", ")+")").String()
	laplaceMethod = laplaceCmd.Flag("method", "mode search method "+
		"(auto: bisection for univariate models, bfgs otherwise, "+
		"bisection: bisection on the derivative, "+
		"bfgs: Broyden–Fletcher–Goldfarb–Shanno, "+
		"simplex: downhill simplex, "+
		"lbfgsb: limited-memory BFGS with bounding constraints"+
		")").String()

	summaryCmd = app.Command("summary", "summarize a run stored in the database")
	summaryKey = summaryCmd.Arg("key", "run key").Required().String()
)

// override applies the command line values to the run file settings.
func override(cfg *Config) {
	sc := &cfg.Sampler
	if *iterations > 0 {
		sc.Iterations = *iterations
	}
	if *burnIn >= 0 {
		sc.BurnIn = *burnIn
	}
	if *chains > 0 {
		sc.Chains = *chains
	}
	if *proposal != "" {
		sc.Proposal = *proposal
	}
	if len(*sd) > 0 {
		sc.SD = *sd
	}
	if *scale > 0 {
		sc.Scale = *scale
	}
	if *report > 0 {
		sc.Report = *report
	}
	if *accept > 0 {
		sc.Accept = *accept
	}
	if *level > 0 {
		sc.Level = *level
		cfg.Laplace.Level = *level
	}
	if *maxAdapt >= 0 {
		sc.MaxAdapt = *maxAdapt
	}
	if *target > 0 {
		sc.Target = *target
	}
	if *seed >= 0 {
		sc.Seed = *seed
	}
	sc.Componentwise = sc.Componentwise || *componentwise
	sc.Adaptive = sc.Adaptive || *adaptive
	if *laplaceMethod != "" {
		cfg.Laplace.Method = *laplaceMethod
	}
}

// modelName returns the model from the command line or the run file.
func modelName(arg string, cfg *Config) string {
	if arg != "" {
		return arg
	}
	return cfg.Model
}

// openDB opens the bolt database if requested.
func openDB() *bolt.DB {
	if *dbF == "" {
		return nil
	}
	db, err := bolt.Open(*dbF, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		log.Fatal("Error opening database:", err)
	}
	return db
}

// printSummary logs the posterior summary.
func printSummary(s *diagnostics.Summary, exact map[string]diagnostics.Interval) {
	log.Noticef("Retained %d draws after burn-in %d, acceptance rate %.2f%%",
		s.Retained, s.BurnIn, 100*s.AcceptanceRate)
	header := "parameter\tmean\tsd\teti_lower\teti_upper\thdi_lower\thdi_upper\tess"
	if s.RHat != nil {
		header += "\trhat"
	}
	log.Notice(header)
	for i, p := range s.Parameters {
		line := fmt.Sprintf("%s\t%f\t%f\t%f\t%f\t%f\t%f\t%.1f", p.Name, p.Mean, p.SD,
			p.EqualTailed.Lower, p.EqualTailed.Upper, p.HDI.Lower, p.HDI.Upper, p.ESS)
		if s.RHat != nil {
			line += fmt.Sprintf("\t%.4f", s.RHat[i])
		}
		log.Notice(line)
		if e, ok := exact[p.Name]; ok {
			log.Noticef("%s exact %v%% interval: %v", p.Name, 100*s.Level, e)
		}
	}
}

// printApproximation logs the Laplace approximation.
func printApproximation(s *LaplaceSummary) {
	log.Noticef("Log density at the mode: %v", s.LogDensity)
	for _, p := range s.Parameters {
		log.Noticef("%s: mode=%f, sd=%f, %v%% interval %v", p.Name, p.Mode, p.SD, 100*s.Level, p.Interval)
		if p.Exact != nil {
			log.Noticef("%s: exact interval %v", p.Name, *p.Exact)
		}
	}
}

// writeJSON writes the summary in json format.
func writeJSON(summary interface{}) {
	if *jsonF == "" {
		return
	}
	j, err := json.Marshal(summary)
	if err != nil {
		log.Error(err)
		return
	}
	log.Debug(string(j))
	f, err := os.Create(*jsonF)
	if err != nil {
		log.Error("Error creating json output file:", err)
		return
	}
	f.Write(j)
	f.Close()
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	lvl, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range []string{"bsample", "mcmc", "laplace", "diagnostics", "checkpoint"} {
		logging.SetLevel(lvl, module)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	cfg, err := loadConfig(*configF)
	if err != nil {
		log.Fatal(err)
	}
	override(cfg)

	if cfg.Sampler.Seed < 0 {
		cfg.Sampler.Seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", cfg.Sampler.Seed)

	runtime.GOMAXPROCS(*nThreads)
	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	startTime := time.Now()
	call := CallSummary{
		Version:     version,
		CommandLine: os.Args,
		Seed:        cfg.Sampler.Seed,
		NThreads:    effectiveNThreads,
	}

	switch command {
	case mhCmd.FullCommand(), gibbsCmd.FullCommand():
		name := modelName(*mhModel, cfg)
		if command == gibbsCmd.FullCommand() {
			name = modelName(*gibbsModel, cfg)
		}
		runKey := *key
		if runKey == "" {
			runKey = fmt.Sprintf("%s-%s-%d", command, name, cfg.Sampler.Seed)
		}

		var out io.Writer = os.Stdout
		if *outF != "" {
			f, err := os.Create(*outF)
			if err != nil {
				log.Fatal("Error creating trace file:", err)
			}
			defer f.Close()
			out = f
		}

		db := openDB()
		if db != nil {
			defer db.Close()
		}
		summary, chains, err := sample(command, name, runKey, cfg, db, out)
		if err != nil {
			log.Fatal(err)
		}
		printSummary(summary.Summary, summary.Exact)
		if *plotF != "" {
			if err := plotChains(*plotF, chains, summary.Summary); err != nil {
				log.Error(err)
			}
		}
		call.TotalTime = time.Since(startTime).Seconds()
		summary.CallSummary = call
		writeJSON(summary)
	case laplaceCmd.FullCommand():
		summary, err := approximate(modelName(*laplaceModel, cfg), cfg)
		if err != nil {
			log.Fatal(err)
		}
		printApproximation(summary)
		call.TotalTime = time.Since(startTime).Seconds()
		summary.CallSummary = call
		writeJSON(summary)
	case summaryCmd.FullCommand():
		db := openDB()
		if db == nil {
			log.Fatal("summary requires a database (--db)")
		}
		defer db.Close()
		summary, chains, err := summarizeRun(db, *summaryKey, cfg.Sampler.BurnIn, cfg.Sampler.Level)
		if err != nil {
			log.Fatal(err)
		}
		printSummary(summary.Summary, nil)
		if *plotF != "" {
			if err := plotChains(*plotF, chains, summary.Summary); err != nil {
				log.Error(err)
			}
		}
		seed := summary.Seed
		summary.CallSummary = call
		summary.Seed = seed
		summary.TotalTime = time.Since(startTime).Seconds()
		writeJSON(summary)
	}

	log.Noticef("Running time: %v", time.Since(startTime))
}
