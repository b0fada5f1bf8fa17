package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"nightshift/server/internal/net/proto"
)

// protocolMessages groups every websocket frame so one schema document
// covers both directions.
type protocolMessages struct {
	Client        proto.ClientMessage   `json:"client" jsonschema:"description=Frames sent by the client"`
	State         proto.StateMessage    `json:"state" jsonschema:"description=Per-tick shift broadcast"`
	CommandAck    proto.CommandAck      `json:"commandAck"`
	CommandReject proto.CommandReject   `json:"commandReject"`
	Reaction      proto.ReactionMessage `json:"reaction" jsonschema:"description=Outcome of a click"`
	Heartbeat     proto.HeartbeatAck    `json:"heartbeat"`
	Join          proto.JoinResponse    `json:"join" jsonschema:"description=Body of POST /join"`
}

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(protocolMessages))
	schema.Title = "Night Shift Wire Protocol"
	schema.Description = fmt.Sprintf("Websocket frames exchanged with the ward server, protocol version %d", proto.Version)
	return schema
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
