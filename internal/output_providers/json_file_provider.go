package outputproviders

import (
	"encoding/json"

	"github.com/praetorian-inc/aztopo/internal/message"
	"github.com/praetorian-inc/aztopo/pkg/graph/adapters"
)

type JsonFileProvider struct {
	OutputPath string
}

func (fp *JsonFileProvider) Write(snapshot adapters.Snapshot) error {
	file, err := createFile(fp.OutputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snapshot); err != nil {
		return err
	}

	message.Success("Output written to %s", fp.OutputPath)
	return nil
}
