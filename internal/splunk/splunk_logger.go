package splunk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	PayloadsChannelSize = 1000
	// how often batched events are sent
	SendFrequency = 5 * time.Second
)

// Logger batches events and forwards them to a Splunk HTTP event collector.
type Logger struct {
	client   *http.Client
	url      string
	token    string
	source   string
	hostname string

	payloads chan *Payload
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type Payload struct {
	// splunk expects unix time in seconds
	Time  int64  `json:"time"`
	Host  string `json:"host"`
	Event Event  `json:"event"`
}

type Event struct {
	Message string `json:"message"`
	Ident   string `json:"ident"`
	Host    string `json:"host"`
}

func NewLogger(ctx context.Context, url, token, source, hostname string) *Logger {
	return newLogger(ctx, url, token, source, hostname, SendFrequency)
}

func newLogger(ctx context.Context, url, token, source, hostname string, frequency time.Duration) *Logger {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = 3

	ctx, cancel := context.WithCancel(ctx)
	sl := &Logger{
		client:   rc.StandardClient(),
		url:      url,
		token:    token,
		source:   source,
		hostname: hostname,
		payloads: make(chan *Payload, PayloadsChannelSize),
		cancel:   cancel,
	}

	sl.wg.Add(1)
	go sl.flushPayloads(ctx, frequency)
	return sl
}

func (sl *Logger) flushPayloads(ctx context.Context, frequency time.Duration) {
	defer sl.wg.Done()

	ticker := time.NewTicker(frequency)
	defer ticker.Stop()

	var payloads []*Payload
	send := func() {
		if err := sl.SendPayloads(payloads); err != nil {
			fmt.Fprintf(os.Stderr, "Splunk logger unable to send payloads: %v\n", err)
		}
		payloads = nil
	}

	for {
		select {
		case p := <-sl.payloads:
			payloads = append(payloads, p)
			if len(payloads) == PayloadsChannelSize {
				send()
			}
		case <-ticker.C:
			send()
		case <-ctx.Done():
			// drain what is already queued
			for {
				select {
				case p := <-sl.payloads:
					payloads = append(payloads, p)
				default:
					send()
					return
				}
			}
		}
	}
}

func (sl *Logger) SendPayloads(payloads []*Payload) error {
	if len(payloads) == 0 {
		return nil
	}

	buf := bytes.NewBuffer(nil)
	for _, pl := range payloads {
		b, err := json.Marshal(pl)
		if err != nil {
			return err
		}

		_, err = buf.Write(b)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequest(http.MethodPost, sl.url, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Authorization", fmt.Sprintf("Splunk %s", sl.token))

	res, err := sl.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		buf := bytes.Buffer{}
		_, err = buf.ReadFrom(res.Body)
		if err != nil {
			return fmt.Errorf("Error forwarding to splunk: parsing response failed: %v", err)
		}
		return fmt.Errorf("Error forwarding to splunk: %s", buf.String())
	}
	return nil
}

func (sl *Logger) LogWithTime(t time.Time, msg string) error {
	sp := Payload{
		Time: t.Unix(),
		Host: sl.hostname,
		Event: Event{
			Message: msg,
			Ident:   sl.source,
			Host:    sl.hostname,
		},
	}
	select {
	case sl.payloads <- &sp:
	default:
		return fmt.Errorf("Error queueing splunk payload, channel full")
	}
	return nil
}

// Close stops the flush loop after sending everything queued so far.
func (sl *Logger) Close() {
	sl.cancel()
	sl.wg.Wait()
}
