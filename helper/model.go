package helper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// ModelDir is where local ONNX models are cached. Override it with RADAR_MODEL_DIR.
var ModelDir = "./models"

// ModelPath returns the cache directory for a hub model name.
// "org/name" becomes <ModelDir>/org_name.
func ModelPath(modelName string) string {
	dir := ModelDir
	if env := os.Getenv("RADAR_MODEL_DIR"); env != "" {
		dir = env
	}
	return filepath.Join(dir, strings.ReplaceAll(modelName, "/", "_"))
}

// PrepareModel returns the local path of modelName, downloading it on first use.
func PrepareModel(modelName string, onnxFilePath string) (string, error) {
	if strings.TrimSpace(modelName) == "" {
		return "", NewError("prepare model", errors.New("model name is empty"))
	}

	modelPath := ModelPath(modelName)
	_, err := os.Stat(modelPath)
	if err == nil {
		return modelPath, nil
	}
	if !os.IsNotExist(err) {
		return "", NewError("stat model", err)
	}

	dir := filepath.Dir(modelPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	options := hugot.NewDownloadOptions()
	if onnxFilePath != "" {
		options.OnnxFilePath = onnxFilePath
	}
	downloaded, err := hugot.DownloadModel(modelName, dir, options)
	if err != nil {
		return "", fmt.Errorf("failed to download model %s: %w", modelName, err)
	}

	return downloaded, nil
}
