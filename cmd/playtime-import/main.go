package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/pokercrm/playtime/internal/domain"
	"github.com/pokercrm/playtime/internal/playtime"
)

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9092", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "playtime-sessions", "Kafka topic")
	input := flag.String("file", "-", "JSON-lines file of sessions (- for stdin)")
	source := flag.String("source", "", "Source label stamped on sessions that carry none")
	dryRun := flag.Bool("dry-run", false, "Print the folded per-day entries instead of publishing")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	in := os.Stdin
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			logger.Error("failed to open input", "file", *input, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	sessions, rejected, err := readSessions(in)
	if err != nil {
		logger.Error("failed to read sessions", "error", err)
		os.Exit(1)
	}
	for _, r := range rejected {
		logger.Warn("skipping invalid session", "line", r.Line, "error", r.Err)
	}
	if *source != "" {
		for i := range sessions {
			if sessions[i].Source == "" {
				sessions[i].Source = *source
			}
		}
	}

	if *dryRun {
		entries, invalid := preview(sessions)
		for _, r := range invalid {
			logger.Warn("session would be rejected", "session", r.Line, "error", r.Err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(entries); err != nil {
			logger.Error("failed to write preview", "error", err)
			os.Exit(1)
		}
		return
	}

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 200 * time.Millisecond
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(strings.Split(*brokers, ","), config)
	if err != nil {
		logger.Error("failed to create producer", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	messages, err := buildMessages(*topic, sessions)
	if err != nil {
		logger.Error("failed to encode sessions", "error", err)
		os.Exit(1)
	}
	if len(messages) == 0 {
		logger.Info("nothing to publish")
		return
	}

	if err := producer.SendMessages(messages); err != nil {
		logger.Error("failed to publish sessions", "error", err)
		os.Exit(1)
	}

	logger.Info("sessions published",
		"topic", *topic,
		"published", len(messages),
		"rejected", len(rejected),
	)
}

// buildMessages encodes sessions as Kafka messages keyed by player so that a
// player's sessions land on one partition in file order
func buildMessages(topic string, sessions []domain.Session) ([]*sarama.ProducerMessage, error) {
	messages := make([]*sarama.ProducerMessage, 0, len(sessions))
	for _, s := range sessions {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("encoding session: %w", err)
		}
		messages = append(messages, &sarama.ProducerMessage{
			Topic: topic,
			Key:   sarama.StringEncoder(fmt.Sprintf("%d", s.PlayerID)),
			Value: sarama.ByteEncoder(data),
		})
	}
	return messages, nil
}

// preview normalizes sessions and folds them into the per-day entries an
// import into an empty store would produce
func preview(sessions []domain.Session) ([]domain.PlaytimeEntry, []lineError) {
	var invalid []lineError
	normalized := make([]playtime.Imported, 0, len(sessions))
	for i, s := range sessions {
		n, err := playtime.Normalize(s.PlayedOn, s.StartTime, s.EndTime, s.Minutes)
		if err != nil {
			invalid = append(invalid, lineError{Line: i + 1, Err: err})
			continue
		}
		normalized = append(normalized, playtime.Imported{PlaytimeEntry: n.Entry(s.PlayerID), Source: s.Source})
	}
	return playtime.Fold(normalized), invalid
}
