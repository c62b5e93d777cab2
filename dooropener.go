package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dooropener/audit"
	"dooropener/auth"
	"dooropener/door"
	"dooropener/mqtt"
	"dooropener/queue"
	"dooropener/reader"
	"dooropener/remote"
	"dooropener/state"
	"dooropener/validator"
)

var myBuild string

// App holds the application state and dependencies.
type App struct {
	cfg      *Config
	mqtt     *mqtt.Client
	reader   reader.TagSource
	door     *door.Controller
	status   *queue.Unbounded[state.AuthState]
	verifier *remote.Verifier
	audit    *audit.Store
	ctx      context.Context
	cancel   context.CancelFunc
}

// statusMessage is published for every state change.
type statusMessage struct {
	State state.AuthState `json:"state"`
	At    int64           `json:"at"`
}

func main() {
	fmt.Printf("dooropener build %s\n", myBuild)

	openflag := flag.Bool("open", false, "Actuate the door once and exit")
	cfgfile := flag.String("cfg", "dooropener.cfg", "Config file")
	flag.Parse()

	cfg, err := loadConfig(*cfgfile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	if *openflag {
		if err := openOnce(cfg.Door); err != nil {
			log.Fatalf("Open door: %v", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		status: queue.NewUnbounded[state.AuthState](),
		ctx:    ctx,
		cancel: cancel,
	}

	// Door hardware is brought up in the background by the controller.
	app.door = door.NewController(func() (door.DoorOpener, error) {
		return door.New(cfg.Door)
	}, app.status.In(), cfg.Door)

	app.reader, err = reader.New(cfg.Reader)
	if err != nil {
		log.Fatalf("Init reader: %v", err)
	}

	authority, err := validator.New(cfg.Authority)
	if err != nil {
		log.Fatalf("Init authority client: %v", err)
	}

	if cfg.OpenSecret != "" {
		app.verifier, err = remote.NewVerifier(cfg.OpenSecret, cfg.OpenToolName)
		if err != nil {
			log.Fatalf("Init remote open: %v", err)
		}
	}

	coordinator := auth.New(cfg.Auth, app.reader, authority, app.door, app.status.In())
	if cfg.Audit.Path != "" {
		app.audit, err = audit.Open(ctx, cfg.Audit.Path)
		if err != nil {
			log.Fatalf("Open audit log: %v", err)
		}
		coordinator.Recorder = app.audit
	}

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    app.onMQTTConnect,
		OnDisconnect: app.onMQTTDisconnect,
		OnMessage:    app.onMQTTMessage,
	})
	if err != nil {
		log.Fatalf("Init MQTT: %v", err)
	}

	go func() {
		if err := app.mqtt.Connect(); err != nil {
			log.Printf("MQTT connect: %v", err)
		}
	}()

	statusDone := make(chan struct{})
	go func() {
		app.statusListener()
		close(statusDone)
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		app.door.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		coordinator.Run(ctx)
	}()
	go app.pingSender()

	if cfg.Remote.URL != "" {
		go remote.NewListener(cfg.Remote, app.door).Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	cancel()
	wg.Wait()

	app.status.Close()
	<-statusDone

	app.mqtt.Disconnect()
	if err := app.reader.Close(); err != nil {
		log.Printf("Reader close: %v", err)
	}
	if app.audit != nil {
		app.audit.Close()
	}

	fmt.Println("Shutdown complete")
}

// openOnce drives the actuator through one open and close without the
// controller, for installation checks.
func openOnce(cfg door.Config) error {
	d, err := door.New(cfg)
	if err != nil {
		return err
	}
	defer d.Release()

	if err := d.Open(); err != nil {
		return err
	}
	hold := cfg.HoldMS
	if hold <= 0 {
		hold = 1000
	}
	time.Sleep(time.Duration(hold) * time.Millisecond)
	return d.Close()
}

func (app *App) openTopic() string {
	return app.mqtt.Topic("control", "open")
}

func (app *App) onMQTTConnect() {
	if app.verifier == nil {
		return
	}
	if err := app.mqtt.Subscribe(app.openTopic()); err != nil {
		log.Printf("Subscribe error: %v", err)
	}
}

func (app *App) onMQTTDisconnect() {
	log.Println("Status publishing paused until MQTT reconnects")
}

func (app *App) onMQTTMessage(topic string, payload []byte) {
	if topic == app.openTopic() {
		app.handleOpenRequest(payload)
	}
}

func (app *App) handleOpenRequest(payload []byte) {
	if app.verifier == nil {
		fmt.Println("Remote open disabled (no secret or tool name configured)")
		return
	}

	req, err := app.verifier.Verify(payload)
	if err != nil {
		log.Printf("Open request rejected: %v", err)
		return
	}

	fmt.Printf("Remote open request from %s\n", req.Member)
	app.publishAccess(req.Member, true)
	app.door.Open()
}

// statusListener logs and publishes every state until the stream is closed.
func (app *App) statusListener() {
	for s := range app.status.Out() {
		log.Printf("State: %s", s)
		app.publish(app.mqtt.Topic("status", "auth"), statusMessage{State: s, At: time.Now().Unix()})
	}
}

// publish sends v as JSON, logging rather than returning failures.
func (app *App) publish(topic string, v any) {
	if err := app.mqtt.PublishJSON(topic, v); err != nil {
		log.Printf("Publish %s: %v", topic, err)
	}
}

func (app *App) publishAccess(member string, allowed bool) {
	allowedInt := 0
	if allowed {
		allowedInt = 1
	}
	app.publish(app.mqtt.Topic("status", "access"), map[string]any{
		"allowed": allowedInt,
		"member":  member,
	})
}

func (app *App) pingSender() {
	ticker := time.NewTicker(time.Duration(app.cfg.PingSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Publish(app.mqtt.Topic("ping"), `{"status":"ok"}`)
		}
	}
}
