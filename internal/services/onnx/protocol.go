package onnx

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

const (
	opClassify = "classify"
	opEmbed    = "embed"
)

type request struct {
	ID   int64  `json:"id"`
	Op   string `json:"op"`
	Data string `json:"data"`
}

type response struct {
	ID    int64  `json:"id"`
	Shape []int  `json:"shape,omitempty"`
	Data  string `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type readyMessage struct {
	Event        string            `json:"event"`
	Segmentation bool              `json:"segmentation"`
	Embedding    bool              `json:"embedding"`
	Errors       map[string]string `json:"errors"`
}

func encodeFloats(values []float32) string {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func decodeFloats(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode tensor: %w", err)
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("tensor payload has %d bytes, not a multiple of 4", len(raw))
	}
	out := make([]float32, len(raw)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// reshape2D splits a flat tensor into rows according to a [rows, cols] shape.
func reshape2D(values []float32, shape []int) ([][]float32, error) {
	if len(shape) != 2 || shape[0] < 0 || shape[1] <= 0 {
		return nil, fmt.Errorf("expected [steps, classes] output, got shape %v", shape)
	}
	if shape[0]*shape[1] != len(values) {
		return nil, fmt.Errorf("shape %v does not match %d values", shape, len(values))
	}
	rows := make([][]float32, shape[0])
	for i := range rows {
		rows[i] = values[i*shape[1] : (i+1)*shape[1]]
	}
	return rows, nil
}
