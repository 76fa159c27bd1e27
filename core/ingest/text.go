package ingest

import (
	"io"

	"github.com/siherrmann/radar/helper"
	"github.com/siherrmann/radar/model"
)

// StdinPath selects standard input as source.
const StdinPath = "-"

// ReadText builds a stdin signal from everything readable from r.
func ReadText(r io.Reader) (*model.Signal, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, helper.NewError("read input", err)
	}

	signal, err := model.NewSignalFromText(string(content), model.SignalSourceStdin)
	if err != nil {
		return nil, helper.NewError("create signal", err)
	}

	return signal, nil
}

// ReadSource reads a signal from the file at path, or from stdin if path is empty or "-".
func ReadSource(path string, stdin io.Reader) (*model.Signal, error) {
	if path == "" || path == StdinPath {
		return ReadText(stdin)
	}

	signal, err := model.NewSignalFromFile(path)
	if err != nil {
		return nil, helper.NewError("read file", err)
	}

	return signal, nil
}
