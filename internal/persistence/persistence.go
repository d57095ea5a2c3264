// ============================================================================
// KVS Persistence I/O
// ============================================================================
//
// Package: internal/persistence
// File: persistence.go
// Purpose: write_pair / read_pair — the two-file (.json + .hash) commit
//          unit every slot (live store and snapshots) is built from.
//
// ============================================================================

package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/chuliyu-labs/kvstore-core/internal/checksum"
	"github.com/chuliyu-labs/kvstore-core/internal/codec"
	"github.com/chuliyu-labs/kvstore-core/internal/fsio"
	"github.com/chuliyu-labs/kvstore-core/pkg/kvs"
)

// Policy controls how a missing .json file is treated on read.
type Policy int

const (
	// Required means a missing file is an error.
	Required Policy = iota
	// Optional means a missing file is treated as empty.
	Optional
)

// Pair is what ReadPair hands back: the decoded key->Value map, and
// whether the slot existed at all (false only when Optional and the file
// was absent).
type Pair struct {
	Values map[string]kvs.Value
	Exists bool
}

// WritePair writes bytes to "<prefix>.json" and its Adler-32 checksum to
// "<prefix>.hash". The two writes are not atomic by design: a crash
// between them leaves a JSON without a matching hash, which the
// read path rejects rather than trusting unverified data
// (KvsHashFileReadError if the hash file is absent, ValidationFailed if
// it does not match).
func WritePair(fs fsio.FS, prefix string, bytes []byte) error {
	jsonPath := prefix + ".json"
	hashPath := prefix + ".hash"

	if err := fs.WriteFile(jsonPath, bytes, 0o644); err != nil {
		return kvs.WrapPhysicalStorageFailure(fmt.Sprintf("write %s", jsonPath), err)
	}

	sum := checksum.Pack(checksum.Adler32(bytes))
	if err := fs.WriteFile(hashPath, sum[:], 0o644); err != nil {
		return kvs.WrapPhysicalStorageFailure(fmt.Sprintf("write %s", hashPath), err)
	}

	return nil
}

// ReadPair reads "<prefix>.json" and "<prefix>.hash", verifies the hash,
// and decodes the JSON object into a key->Value map via internal/codec.
func ReadPair(fs fsio.FS, prefix string, policy Policy) (Pair, error) {
	jsonPath := prefix + ".json"
	hashPath := prefix + ".hash"

	data, err := fs.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			if policy == Optional {
				return Pair{Values: map[string]kvs.Value{}, Exists: false}, nil
			}
			return Pair{}, kvs.WrapKvsFileReadError(fmt.Sprintf("read %s", jsonPath), err)
		}
		return Pair{}, kvs.WrapPhysicalStorageFailure(fmt.Sprintf("read %s", jsonPath), err)
	}

	sum, err := fs.ReadFile(hashPath)
	if err != nil {
		return Pair{}, kvs.WrapKvsHashFileReadError(fmt.Sprintf("read %s", hashPath), err)
	}

	if !checksum.Verify(data, sum) {
		return Pair{}, &kvs.Error{Kind: kvs.KindValidationFailed, Message: fmt.Sprintf("hash mismatch for %s", jsonPath)}
	}

	values, err := decodeValues(data)
	if err != nil {
		return Pair{}, err
	}

	return Pair{Values: values, Exists: true}, nil
}

func decodeValues(raw []byte) (map[string]kvs.Value, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()

	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, kvs.WrapJsonParserError("parse kvs document", err)
	}

	return codec.DecodeMap(tree)
}

// EncodeValues serializes a key->Value map into the bytes WritePair should
// receive: codec-encode every entry, then marshal the resulting object.
func EncodeValues(values map[string]kvs.Value) ([]byte, error) {
	tree, err := codec.EncodeMap(values)
	if err != nil {
		return nil, err
	}
	out, err := json.Marshal(tree)
	if err != nil {
		return nil, kvs.WrapJsonGeneratorError("marshal kvs document", err)
	}
	return out, nil
}
