// Prediction viewer: tails the prediction topic and prints each emotion
// event as it arrives. Development tool for watching a running service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"

	"ai-emotion-inference-service/internal/models"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "emotion.prediction", "Prediction topic")
	since := flag.Duration("since", time.Hour, "Replay events newer than this")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	// Plain partition reader, no consumer group: works through a port-forward
	// and never commits offsets.
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   strings.Split(*brokers, ","),
		Topic:     *topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()

	if err := reader.SetOffsetAt(ctx, time.Now().Add(-*since)); err != nil {
		log.Printf("Seek failed, starting from current offset: %v", err)
	}

	log.Printf("Tailing %s on %s", *topic, *brokers)

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Kafka read error: %v", err)
			time.Sleep(time.Second)
			continue
		}

		var event models.PredictionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("Skipping malformed event: %v", err)
			continue
		}

		ts := time.UnixMilli(event.Timestamp).Format("15:04:05.000")
		fmt.Printf("%s  %-8s session=%s  %s (%d%%)\n",
			ts, event.Source, event.SessionID, event.Emotion, event.Confidence)
	}
}
