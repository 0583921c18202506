package internal

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markusressel/clevod/internal/api"
	"github.com/markusressel/clevod/internal/configuration"
	"github.com/markusressel/clevod/internal/control"
	"github.com/markusressel/clevod/internal/controller"
	"github.com/markusressel/clevod/internal/ec"
	"github.com/markusressel/clevod/internal/instance"
	"github.com/markusressel/clevod/internal/ipc"
	"github.com/markusressel/clevod/internal/persistence"
	"github.com/markusressel/clevod/internal/privilege"
	"github.com/markusressel/clevod/internal/statistics"
	"github.com/markusressel/clevod/internal/ui"
	"github.com/oklog/run"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exit codes of the daemon.
const (
	ExitOk              = 0
	ExitError           = 1
	ExitAlreadyRunning  = 2
	ExitPrivilegeDenied = 3
	ExitEcProbeFailed   = 4
	ExitIpcBindFailed   = 5
)

// RunDaemon starts the control loop and all serving surfaces and
// blocks until an exit signal arrives. Exits the process.
func RunDaemon() {
	config := configuration.CurrentConfig

	// the EC ports are a process-exclusive resource
	if err := instance.Acquire(); err != nil {
		ui.Error("Multiple running instances: %v", err)
		os.Exit(ExitAlreadyRunning)
	}

	if err := privilege.CheckRawIO(); err != nil {
		ui.Error("Failed to setup privileges for EC access: %v", err)
		ui.Printfln("%s", privilege.Help())
		os.Exit(ExitPrivilegeDenied)
	}

	portIO, err := ec.OpenDevPort()
	if err != nil {
		ui.Error("Unable to open %s: %v", ec.DevPortPath, err)
		os.Exit(ExitPrivilegeDenied)
	}

	device := ec.NewDevice(
		ec.NewPortTransport(portIO),
		ec.NewSysfsImage(ec.SysfsImagePath),
	)
	if err = device.Probe(); err != nil {
		ui.Error("Unable to control EC: %v", err)
		os.Exit(ExitEcProbeFailed)
	}

	fanController := buildController(device, config)

	var pers persistence.Persistence
	if config.Persistence.Enabled {
		pers = persistence.NewPersistence(config.Persistence.DbPath, config.Persistence.MaxSamples)
		if err = pers.Init(); err != nil {
			ui.Error("Unable to initialize persistence: %v", err)
			os.Exit(ExitError)
		}
		attachPersistence(fanController, pers)
	}

	ipcServer := ipc.NewServer(config.Ipc.SocketPath, fanController)
	if err = ipcServer.Bind(); err != nil {
		ui.Error("Unable to bind IPC socket %s: %v", config.Ipc.SocketPath, err)
		os.Exit(ExitIpcBindFailed)
	}

	if config.Statistics.Enabled {
		statistics.Register(statistics.NewControllerCollector(fanController))
		statistics.Register(statistics.NewTunerCollector(fanController))
	}

	ui.Info("Starting fan control daemon with target temperature %d°C", config.TargetTemp)

	ctx, cancel := context.WithCancel(context.Background())

	var g run.Group
	{
		// === the control loop, owns all EC access
		g.Add(func() error {
			err := fanController.Run(ctx)
			ui.Info("Fan controller stopped.")
			return err
		}, func(err error) {
			if err != nil {
				ui.Warning("Error in fan controller: %v", err)
			}
		})
	}
	{
		// === IPC command surface
		g.Add(func() error {
			return ipcServer.Run(ctx)
		}, func(err error) {
			if err != nil {
				ui.Warning("Error in IPC server: %v", err)
			}
		})
	}
	{
		enabled := config.Statistics.Enabled
		if enabled {
			// === Prometheus Exporter
			g.Add(func() error {
				addr := fmt.Sprintf(":%d", config.Statistics.Port)
				server := &http.Server{Addr: addr, Handler: promhttp.Handler()}
				go func() {
					<-ctx.Done()
					ui.Info("Stopping statistics server...")
					timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer timeoutCancel()
					_ = server.Shutdown(timeoutCtx)
				}()
				if err := server.ListenAndServe(); err != http.ErrServerClosed {
					ui.Error("Cannot start prometheus metrics endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping statistics server: " + err.Error())
				} else {
					ui.Info("Statistics server stopped.")
				}
			})
		}
	}
	{
		enabled := config.Api.Enabled
		if enabled {
			// === REST observability API
			g.Add(func() error {
				var history api.HistoryProvider
				if pers != nil {
					history = pers
				}
				restService := api.CreateRestService(fanController, history)
				go func() {
					<-ctx.Done()
					ui.Info("Stopping REST api...")
					timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer timeoutCancel()
					_ = restService.Shutdown(timeoutCtx)
				}()
				err := restService.Start(fmt.Sprintf(":%d", config.Api.Port))
				if err != nil && err != http.ErrServerClosed {
					ui.Error("Cannot start REST api endpoint (%s)", err.Error())
					return err
				}
				return nil
			}, func(err error) {
				if err != nil {
					ui.Warning("Error stopping REST api: " + err.Error())
				} else {
					ui.Info("REST api stopped.")
				}
			})
		}
	}
	{
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

		g.Add(func() error {
			<-sig
			ui.Info("Received exit signal, shutting down...")
			return nil
		}, func(err error) {
			defer close(sig)
			cancel()
		})
	}

	if err := g.Run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		instance.Release()
		os.Exit(ExitError)
	}
	ui.Info("Done.")
	instance.Release()
	os.Exit(ExitOk)
}

func buildController(device controller.Device, config configuration.Configuration) *controller.Controller {
	pid := control.NewPid(control.PidConfig{
		Enabled:   config.Pid.Enabled,
		Kp:        config.Pid.Kp,
		Ki:        config.Pid.Ki,
		Kd:        config.Pid.Kd,
		OutputMin: config.Pid.OutputMin,
		OutputMax: config.Pid.OutputMax,
	})
	activity := control.NewActivityDetector(control.ActivityConfig{
		TempThreshold: config.Activity.TempThreshold,
		FanThreshold:  config.Activity.FanThreshold,
		StablePeriod:  config.Activity.StablePeriodDuration(),
		MaxIdleCycles: config.Activity.MaxIdleCycles,
	})
	tuner := control.NewAdaptiveTuner(control.AdaptiveConfig{
		Enabled:           config.Adaptive.Enabled,
		TuningInterval:    config.Adaptive.TuningInterval,
		TargetPerformance: config.Adaptive.TargetPerformance,
		RapidCycles:       config.Adaptive.RapidCycles,
		RapidMultiplier:   config.Adaptive.RapidMultiplier,
		SteadyThreshold:   config.Adaptive.SteadyThreshold,
		SteadyCycles:      config.Adaptive.SteadyCycles,
	})

	return controller.NewController(device, pid, activity, tuner, controller.Config{
		TickRate:        config.TickRate(),
		TargetTemp:      config.TargetTemp,
		AdaptiveEnabled: config.Adaptive.Enabled,
	})
}

func attachPersistence(fanController *controller.Controller, pers persistence.Persistence) {
	fanController.SetSampleListener(func(sample controller.Sample) {
		if err := pers.SaveSample(sample); err != nil {
			ui.ThrottledError("persistence-sample", "Unable to persist sample: %v", err)
		}
	})
	fanController.SetTuningListener(func(at time.Time, result control.TuningResult) {
		record := persistence.TuningRecord{Time: at, Result: result}
		if err := pers.SaveTuning(record); err != nil {
			ui.ThrottledError("persistence-tuning", "Unable to persist tuning record: %v", err)
		}
	})
}
