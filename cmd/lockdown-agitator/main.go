// Package main - agitator
// Load generator: many websocket clients spamming player actions at one server.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/lockdown/internal/network"
	apperrors "github.com/MRamiBalles/lockdown/internal/platform/errors"
)

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Output         string
}

// Stats tracks what the clients saw.
type Stats struct {
	MessagesSent    int64
	EventsReceived  int64
	RepliesReceived int64
	RateLimited     int64
	Rejected        int64
	Errors          int64
	Latencies       []time.Duration // send to reply
	mu              sync.Mutex
}

// Only actions that leave the puzzle state alone, so a live room survives the run.
var actionTypes = []string{
	network.ActionSubmitCode,
	network.ActionWaterTap,
}

var wrongCodes = []string{"A-000", "Z-999", "0000", "B-12", "Q-77"}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 250*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 30*time.Second, "Test duration")
	output := flag.String("out", "agitator_results.json", "Where to write the JSON summary")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Output:         *output,
	}

	fmt.Printf("agitator: %d clients -> %s every %v for %v\n",
		config.NumClients, config.ServerURL, config.ActionInterval, config.TestDuration)

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{Latencies: make([]time.Duration, 0, 10000)}
	var wg sync.WaitGroup

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("progress: sent=%d replies=%d limited=%d events=%d errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.RepliesReceived),
					atomic.LoadInt64(&stats.RateLimited),
					atomic.LoadInt64(&stats.EventsReceived),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Printf("client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Replies mostly come back in send order, so a FIFO of send times is close enough.
	var pendingMu sync.Mutex
	var pending []time.Time

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			for _, line := range bytes.Split(data, []byte{'\n'}) {
				var reply network.Reply
				if json.Unmarshal(line, &reply) != nil || reply.Type != network.ReplyType {
					atomic.AddInt64(&stats.EventsReceived, 1)
					continue
				}
				atomic.AddInt64(&stats.RepliesReceived, 1)
				switch {
				case reply.Code == string(apperrors.CodeRateLimited):
					atomic.AddInt64(&stats.RateLimited, 1)
				case !reply.OK:
					atomic.AddInt64(&stats.Rejected, 1)
				}
				pendingMu.Lock()
				if len(pending) > 0 {
					latency := time.Since(pending[0])
					pending = pending[1:]
					stats.mu.Lock()
					stats.Latencies = append(stats.Latencies, latency)
					stats.mu.Unlock()
				}
				pendingMu.Unlock()
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pendingMu.Lock()
			pending = append(pending, time.Now())
			pendingMu.Unlock()
			if err := conn.WriteJSON(randomAction()); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}
			atomic.AddInt64(&stats.MessagesSent, 1)
		}
	}
}

func randomAction() network.PlayerAction {
	actionType := actionTypes[rand.Intn(len(actionTypes))]
	action := network.PlayerAction{Type: actionType}

	var payload interface{}
	switch actionType {
	case network.ActionSubmitCode:
		payload = map[string]string{"code": wrongCodes[rand.Intn(len(wrongCodes))]}
	case network.ActionWaterTap:
		payload = map[string]bool{"running": rand.Intn(2) == 0}
	}
	if payload != nil {
		action.Payload, _ = json.Marshal(payload)
	}
	return action
}

func printResults(stats *Stats, config Config) {
	sent := atomic.LoadInt64(&stats.MessagesSent)
	replies := atomic.LoadInt64(&stats.RepliesReceived)
	errs := atomic.LoadInt64(&stats.Errors)
	throughput := float64(sent) / config.TestDuration.Seconds()

	fmt.Println("-----------------------------------------")
	fmt.Printf("Messages sent:     %d\n", sent)
	fmt.Printf("Replies received:  %d\n", replies)
	fmt.Printf("Rate limited:      %d\n", atomic.LoadInt64(&stats.RateLimited))
	fmt.Printf("Rejected:          %d\n", atomic.LoadInt64(&stats.Rejected))
	fmt.Printf("Events received:   %d\n", atomic.LoadInt64(&stats.EventsReceived))
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	latencies := stats.Latencies
	stats.mu.Unlock()
	var avg, max time.Duration
	if len(latencies) > 0 {
		var total time.Duration
		for _, l := range latencies {
			total += l
			if l > max {
				max = l
			}
		}
		avg = total / time.Duration(len(latencies))
		fmt.Printf("Reply latency:     avg %v, max %v\n", avg, max)
	}

	results := map[string]interface{}{
		"messages_sent":      sent,
		"replies_received":   replies,
		"rate_limited":       atomic.LoadInt64(&stats.RateLimited),
		"errors":             errs,
		"throughput_per_sec": throughput,
		"latency_avg":        avg.String(),
		"latency_max":        max.String(),
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}
	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.Output, jsonData, 0644); err != nil {
		log.Printf("failed to write results: %v", err)
		return
	}
	fmt.Printf("Results saved to %s\n", config.Output)
}
