package service

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"backtester/internal/metrics"
	"backtester/internal/models"
)

// JSONWriter пишет результат прогона в <dir>/<symbol>_<profile>.json.
type JSONWriter struct {
	dir    string
	places int32 // 0: без округления метрик
}

func NewJSONWriter(dir string, places int32) *JSONWriter {
	return &JSONWriter{dir: dir, places: places}
}

func (w *JSONWriter) Path(res *models.Result) string {
	name := strings.NewReplacer("/", "-", string(os.PathSeparator), "-").Replace(res.Symbol + "_" + res.Profile)
	return filepath.Join(w.dir, name+".json")
}

func (w *JSONWriter) Write(res *models.Result) (string, error) {
	data, err := Encode(res, w.places)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", errors.Wrap(err, "create out dir")
	}
	path := w.Path(res)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

// Encode: отформатированный JSON результата; исходный res не меняется.
func Encode(res *models.Result, places int32) ([]byte, error) {
	out := *res
	if places > 0 {
		out.Metrics = metrics.Round(out.Metrics, places)
	}
	data, err := sonic.ConfigStd.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshal result")
	}
	return data, nil
}
