package internal

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/lambdatrace/go-agent/internal/logger"
)

const (
	lambdaMetadataVersion = 2

	// ProtocolVersion is the protocol version used to communicate with NR
	// backend.
	ProtocolVersion = 17
)

// ServerlessHarvest is used to store and log data when the agent is running
// in serverless mode.
type ServerlessHarvest struct {
	logger          logger.Logger
	version         string
	awsExecutionEnv string
	config          HarvestConfig

	// The Lock protects the mutable fields below.
	sync.Mutex
	harvest *Harvest
}

// NewServerlessHarvest creates a new ServerlessHarvest.
func NewServerlessHarvest(lg logger.Logger, version string, getEnv func(string) string, cfg HarvestConfig) *ServerlessHarvest {
	if nil == lg {
		lg = logger.ShimLogger{}
	}
	return &ServerlessHarvest{
		logger:          lg,
		version:         version,
		awsExecutionEnv: getEnv("AWS_EXECUTION_ENV"),
		config:          cfg,

		harvest: NewHarvest(time.Now(), cfg),
	}
}

// Consume adds data to the harvest.
func (sh *ServerlessHarvest) Consume(data Harvestable) {
	if nil == sh {
		return
	}
	sh.Lock()
	defer sh.Unlock()

	data.MergeIntoHarvest(sh.harvest)
}

// ErrorAggregator exposes the error aggregator of the current harvest so
// that errors noticed outside any transaction can be captured.
func (sh *ServerlessHarvest) ErrorAggregator() *ErrorAggregator {
	if nil == sh {
		return nil
	}
	sh.Lock()
	defer sh.Unlock()

	return sh.harvest.ErrorTraces
}

func (sh *ServerlessHarvest) swapHarvest() *Harvest {
	sh.Lock()
	defer sh.Unlock()

	h := sh.harvest
	sh.harvest = NewHarvest(time.Now(), sh.config)
	return h
}

// Write logs the data harvest in the format expected by the collector.
// Note that this function should only be used in serverless mode.
func (sh *ServerlessHarvest) Write(arn string, writer io.Writer) {
	if nil == sh {
		return
	}
	harvest := sh.swapHarvest()
	now := time.Now()

	payloads := make(map[string]json.RawMessage)

	// The run ID is absent in serverless mode: the collector session
	// belongs to whoever uploads the payload.
	if data, err := harvest.Metrics.CollectorJSON(nil, now); nil != err {
		sh.logger.Error("error creating metric payload", map[string]interface{}{
			"error": err.Error(),
		})
	} else if nil != data {
		payloads["metric_data"] = data
	}

	if errs := harvest.ErrorTraces.Drain(); len(errs) > 0 {
		data, err := SerializeErrors(nil, errs)
		if nil != err {
			sh.logger.Error("error creating error payload", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			payloads["error_data"] = data
		}
	}

	if data, err := harvest.TxnEvents.CollectorJSON(nil); nil != err {
		sh.logger.Error("error creating event payload", map[string]interface{}{
			"error": err.Error(),
		})
	} else if nil != data {
		payloads["analytic_event_data"] = data
	}

	if 0 == len(payloads) {
		return
	}

	harvestPayloads, err := json.Marshal(payloads)
	if nil != err {
		sh.logger.Error("error creating serverless data payload", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	var dataBuf bytes.Buffer
	gz := gzip.NewWriter(&dataBuf)
	gz.Write(harvestPayloads)
	gz.Flush()
	gz.Close()

	js, err := json.Marshal([]interface{}{
		lambdaMetadataVersion,
		"NR_LAMBDA_MONITORING",
		struct {
			MetadataVersion      int    `json:"metadata_version"`
			ARN                  string `json:"arn"`
			ProtocolVersion      int    `json:"protocol_version"`
			ExecutionEnvironment string `json:"execution_environment"`
			AgentVersion         string `json:"agent_version"`
			AgentLanguage        string `json:"agent_language"`
		}{
			MetadataVersion:      lambdaMetadataVersion,
			ARN:                  arn,
			ProtocolVersion:      ProtocolVersion,
			ExecutionEnvironment: sh.awsExecutionEnv,
			AgentVersion:         sh.version,
			AgentLanguage:        "go",
		},
		base64.StdEncoding.EncodeToString(dataBuf.Bytes()),
	})

	if nil != err {
		sh.logger.Error("error creating serverless json", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	writer.Write(js)
	writer.Write([]byte{'\n'})
}

// ParseServerlessPayload exists for testing.
func ParseServerlessPayload(data []byte) (metadata, uncompressedData map[string]json.RawMessage, err error) {
	var arr [4]json.RawMessage
	if err = json.Unmarshal(data, &arr); nil != err {
		err = fmt.Errorf("unable to unmarshal serverless data array: %v", err)
		return
	}
	var dataJSON []byte
	compressed := strings.Trim(string(arr[3]), `"`)
	if dataJSON, err = decodeUncompress(compressed); nil != err {
		err = fmt.Errorf("unable to uncompress serverless data: %v", err)
		return
	}
	if err = json.Unmarshal(dataJSON, &uncompressedData); nil != err {
		err = fmt.Errorf("unable to unmarshal uncompressed serverless data: %v", err)
		return
	}
	if err = json.Unmarshal(arr[2], &metadata); nil != err {
		err = fmt.Errorf("unable to unmarshal serverless metadata: %v", err)
		return
	}
	return
}

func decodeUncompress(input string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(input)
	if nil != err {
		return nil, err
	}

	buf := bytes.NewBuffer(decoded)
	gz, err := gzip.NewReader(buf)
	if nil != err {
		return nil, err
	}
	var out bytes.Buffer
	io.Copy(&out, gz)
	gz.Close()

	return out.Bytes(), nil
}
