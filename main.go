package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/OutOfBedlam/metric"
	"github.com/OutOfBedlam/trendline/chart"
	"github.com/OutOfBedlam/trendline/dataset"
	_ "github.com/OutOfBedlam/trendline/input/gostat"
	_ "github.com/OutOfBedlam/trendline/input/ps"
	"github.com/OutOfBedlam/trendline/registry"
	"github.com/OutOfBedlam/trendline/server"
	_ "github.com/OutOfBedlam/trendline/source/file"
	"github.com/OutOfBedlam/trendline/store"
	"github.com/OutOfBedlam/trendline/store/memory"
	"github.com/OutOfBedlam/trendline/store/redis"
	"github.com/OutOfBedlam/trendline/store/sqlite"
	"github.com/go-chi/chi/v5"
)

//go:generate go run main.go -gen-config ./trendline-default.conf

type Trendline struct {
	Log       LogConfig         `toml:"log"`
	Http      HttpConfig        `toml:"http"`
	Chart     chart.Config      `toml:"chart"`
	Store     StoreConfig       `toml:"store"`
	State     StateConfig       `toml:"state"`
	Data      DataConfig        `toml:"data"`
	Collector *metric.Collector `toml:"-"`
	Sources   []registry.Source `toml:"-"`
	logLevel  *slog.LevelVar
}

type LogConfig struct {
	Level string `toml:"level"`
}

type HttpConfig struct {
	Listen        string `toml:"listen"`
	AdvAddr       string `toml:"adv_addr"`
	DashboardPath string `toml:"dashboard"`
	ApiPath       string `toml:"api"`
}

type StoreConfig struct {
	Path      string        `toml:"path"`
	Retention time.Duration `toml:"retention"`
}

type StateConfig struct {
	Backend  string        `toml:"backend"` // "memory" or "redis"
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	DB       int           `toml:"db"`
	Prefix   string        `toml:"prefix"`
	TTL      time.Duration `toml:"ttl"`
}

type DataConfig struct {
	TimeField        string             `toml:"time_field"`
	Resolution       string             `toml:"resolution"`
	SamplingInterval time.Duration      `toml:"sampling_interval"`
	InputBuffer      int                `toml:"input_buffer"`
	Prefix           string             `toml:"prefix"`
	Store            string             `toml:"store"`
	Filter           FilterConfig       `toml:"filter"`
	Timeseries       []TimeseriesConfig `toml:"timeseries"`
}

type TimeseriesConfig struct {
	Name     string        `toml:"name"`
	Interval time.Duration `toml:"interval"`
	MaxCount int           `toml:"length"`
}

type FilterConfig struct {
	Includes []string `toml:"includes"`
	Excludes []string `toml:"excludes"`
}

//go:embed "trendline-default.conf"
var configContent string

func defaultConfig() Trendline {
	return Trendline{
		Log: LogConfig{Level: "info"},
		Http: HttpConfig{
			Listen:        ":3000",
			AdvAddr:       "http://localhost:3000",
			DashboardPath: "/dashboard",
			ApiPath:       "/api",
		},
		Chart: chart.DefaultConfig(),
		Store: StoreConfig{
			Path: "./tmp/trendline.db",
		},
		State: StateConfig{
			Backend: "memory",
			Addr:    "127.0.0.1:6379",
			Prefix:  "trendline:hidden:",
		},
		Data: DataConfig{
			TimeField:        dataset.DefaultTimeField,
			Resolution:       string(dataset.ResolutionDay),
			SamplingInterval: time.Second,
			InputBuffer:      100,
			Store:            "./tmp/metrics/",
			Filter: FilterConfig{
				Includes: []string{},
				Excludes: []string{},
			},
			Timeseries: []TimeseriesConfig{
				{Name: "15m", Interval: 10 * time.Second, MaxCount: 90},
				{Name: "1h30m", Interval: time.Minute, MaxCount: 90},
				{Name: "2d", Interval: 30 * time.Minute, MaxCount: 96},
			},
		},
	}
}

func main() {
	var configFilename string
	var genConfigFilename string

	flag.StringVar(&configFilename, "config", "", "trendline config file path")
	flag.StringVar(&genConfigFilename, "gen-config", "", "Generates default config to the given filename")
	flag.Parse()

	tc := defaultConfig()

	if genConfigFilename != "" {
		tc.genConfig(genConfigFilename)
		return
	}
	if configFilename != "" {
		if b, err := os.ReadFile(configFilename); err != nil {
			panic(err)
		} else {
			configContent = string(b)
		}
	}
	if err := tc.loadConfig(configContent); err != nil {
		panic(err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: tc.logLevel}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(filepath.Dir(tc.Store.Path), 0755); err != nil {
		panic(err)
	}
	datasets := sqlite.NewStorage(tc.Store.Path, tc.Store.Retention)
	datasets.SetLogger(logger)
	if err := datasets.Open(); err != nil {
		panic(err)
	}
	defer datasets.Close()

	visibility, err := tc.visibilityStore()
	if err != nil {
		panic(err)
	}
	if c, ok := visibility.(interface{ Close() error }); ok {
		defer c.Close()
	}

	tc.importSources(context.Background(), datasets, logger)

	tc.Collector.Start()
	defer tc.Collector.Stop()

	// http server
	if tc.Http.Listen != "" {
		avgOnlyFilter := metric.MustCompile([]string{"*(avg)"})
		httpStatusFilter := metric.MustCompile([]string{"http:status_[1-5]xx"}, ':')
		httpRouteFilter := metric.MustCompile([]string{"http:route_*"}, ':')

		dash := metric.NewDashboard(tc.Collector)
		dash.PageTitle = "Trendline"
		dash.ShowRemains = true
		dash.SetTheme("light")
		dash.SetPanelHeight(300)
		dash.SetPanelMinWidth(400)
		dash.SetPanelMaxWidth(600)
		dash.AddChart(metric.Chart{Title: "Chart Renders", MetricNames: []string{"chart:renders"}})
		dash.AddChart(metric.Chart{Title: "Series per Chart", MetricNames: []string{"chart:series"}, ValueSelector: avgOnlyFilter})
		dash.AddChart(metric.Chart{Title: "HTTP Latency", MetricNames: []string{"http:latency"}})
		dash.AddChart(metric.Chart{Title: "HTTP I/O", MetricNames: []string{"http:bytes_recv", "http:bytes_sent"}, Type: metric.ChartTypeLine})
		dash.AddChart(metric.Chart{Title: "HTTP Status", MetricNameFilter: httpStatusFilter, Type: metric.ChartTypeBarStack})
		dash.AddChart(metric.Chart{Title: "HTTP Routes", MetricNameFilter: httpRouteFilter, Type: metric.ChartTypeBarStack})
		dash.AddChart(metric.Chart{Title: "CPU Usage", MetricNames: []string{"host:cpu_percent", "proc:cpu_percent"}, Type: metric.ChartTypeLine})
		dash.AddChart(metric.Chart{Title: "MEM Usage", MetricNames: []string{"host:mem_percent"}})
		dash.AddChart(metric.Chart{Title: "Process RSS", MetricNames: []string{"proc:rss"}, ValueSelector: avgOnlyFilter})
		dash.AddChart(metric.Chart{Title: "Go Routines", MetricNames: []string{"go:goroutines"}, ValueSelector: avgOnlyFilter})
		dash.AddChart(metric.Chart{Title: "Go Heap In Use", MetricNames: []string{"go:heap_inuse"}, ValueSelector: avgOnlyFilter})

		srv := server.New(datasets, visibility, tc.Chart,
			server.WithLogger(logger),
			server.WithCollector(tc.Collector.C),
			server.WithDatasetOptions(dataset.Options{
				TimeField:  tc.Data.TimeField,
				Resolution: dataset.Resolution(tc.Data.Resolution),
			}),
			server.WithBasePath(tc.Http.ApiPath),
		)

		r := chi.NewRouter()
		r.Mount(tc.Http.ApiPath, srv.Handler())
		r.Handle(tc.Http.DashboardPath, dash)
		r.Handle(tc.Http.DashboardPath+"/*", dash)

		svr := &http.Server{
			Addr:      tc.Http.Listen,
			Handler:   r,
			ConnState: connState,
		}
		go func() {
			fmt.Printf("Starting HTTP server on %s%s\n",
				tc.Http.AdvAddr, tc.Http.DashboardPath)
			if err := svr.ListenAndServe(); err != nil {
				if err == http.ErrServerClosed {
					fmt.Println("HTTP server closed")
				} else {
					fmt.Println("Error starting HTTP server:", err)
				}
			}
		}()
		defer svr.Close()
	}

	// wait signal ^C
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	<-signalCh
}

func connState(conn net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		if c, ok := conn.(*net.TCPConn); ok {
			c.SetLinger(0)
		}
	}
}

func (tc Trendline) genConfig(filename string) {
	if filename == "" {
		return
	}
	var err error
	var fd *os.File
	if filename == "-" {
		fd = os.Stdout
	} else {
		fd, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Println("Error open", filename, err.Error())
			return
		}
		defer fd.Close()
	}
	enc := toml.NewEncoder(fd)
	enc.Encode(tc)
	fmt.Fprintln(fd)
	registry.GenerateSampleConfig(fd)
}

func (tc *Trendline) loadConfig(content string) error {
	if _, err := toml.Decode(content, tc); err != nil {
		return err
	}
	tc.logLevel = new(slog.LevelVar)
	if err := tc.logLevel.UnmarshalText([]byte(tc.Log.Level)); err != nil {
		return fmt.Errorf("log level %q: %w", tc.Log.Level, err)
	}
	res, err := dataset.ParseResolution(tc.Data.Resolution)
	if err != nil {
		return err
	}
	tc.Data.Resolution = string(res)
	switch tc.Chart.Missing {
	case chart.MissingFail, chart.MissingSkip:
	default:
		return fmt.Errorf("chart.missing must be %q or %q, not %q", chart.MissingFail, chart.MissingSkip, tc.Chart.Missing)
	}
	if tc.Data.SamplingInterval < time.Second {
		tc.Data.SamplingInterval = time.Second
	}
	options := []metric.CollectorOption{
		metric.WithSamplingInterval(tc.Data.SamplingInterval),
		metric.WithInputBuffer(tc.Data.InputBuffer),
		metric.WithPrefix(tc.Data.Prefix),
		metric.WithStorage(metric.NewFileStorage(tc.Data.Store)),
	}
	for _, ts := range tc.Data.Timeseries {
		if ts.Interval < time.Second {
			continue
		}
		if ts.MaxCount <= 1 {
			continue
		}
		options = append(options, metric.WithSeries(ts.Name, ts.Interval, ts.MaxCount))
	}
	if len(tc.Data.Filter.Includes) > 0 || len(tc.Data.Filter.Excludes) > 0 {
		filter, err := metric.CompileIncludeAndExclude(tc.Data.Filter.Includes, tc.Data.Filter.Excludes, ':')
		if err != nil {
			return fmt.Errorf("error compiling filter %v: %w", tc.Data.Filter, err)
		}
		options = append(options, metric.WithTimeseriesFilter(filter))
	}
	tc.Collector = metric.NewCollector(options...)
	sources, err := registry.LoadConfig(tc.Collector, content)
	if err != nil {
		return err
	}
	tc.Sources = sources
	return nil
}

func (tc *Trendline) visibilityStore() (store.VisibilityStore, error) {
	switch tc.State.Backend {
	case "", "memory":
		return memory.New(), nil
	case "redis":
		rs := redis.New(tc.State.Addr, tc.State.Password, tc.State.DB,
			redis.WithPrefix(tc.State.Prefix),
			redis.WithTTL(tc.State.TTL))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis %s: %w", tc.State.Addr, err)
		}
		return rs, nil
	}
	return nil, fmt.Errorf("unknown state backend %q", tc.State.Backend)
}

// importSources stores every configured source. A source that fails
// to load is logged and skipped.
func (tc *Trendline) importSources(ctx context.Context, datasets store.DatasetStore, logger *slog.Logger) int {
	n := 0
	for _, src := range tc.Sources {
		tbl, err := src.Load()
		if err != nil {
			logger.Error("Failed to load source", "dataset", src.DatasetName(), "error", err)
			continue
		}
		if err := datasets.Save(ctx, src.DatasetName(), tbl); err != nil {
			logger.Error("Failed to store source", "dataset", src.DatasetName(), "error", err)
			continue
		}
		logger.Info("Imported dataset", "dataset", src.DatasetName(), "rows", len(tbl.Rows))
		n++
	}
	return n
}
