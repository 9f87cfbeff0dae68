package cmd

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/opd-ai/rist"
	"gopkg.in/yaml.v3"
)

// optionsFile is the --options document:
//
//	sender:
//	  recovery_length_min: 500ms
//	receiver:
//	  fifo_size: 1024
//	  rtt_min: 20ms
type optionsFile struct {
	Sender   *rist.SenderOptions   `yaml:"sender,omitempty"`
	Receiver *rist.ReceiverOptions `yaml:"receiver,omitempty"`
}

// loadOptions reads path. An empty path or document yields no options.
func loadOptions(path string) (*optionsFile, error) {
	opts := &optionsFile{}
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(opts); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return opts, nil
}
