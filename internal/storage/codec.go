package storage

import (
	"encoding/json"

	"boolnet/internal/errors"
	"boolnet/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// CurrentVersion is the version stamp written on new records.
func CurrentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

func EncodeSession(s model.Session) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSession(data []byte) (model.Session, error) {
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return model.Session{}, err
	}
	if err := checkVersion(session.VersionedRecord); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

func EncodeTopologyResult(r model.TopologyResult) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeTopologyResult(data []byte) (model.TopologyResult, error) {
	var result model.TopologyResult
	if err := json.Unmarshal(data, &result); err != nil {
		return model.TopologyResult{}, err
	}
	if err := checkVersion(result.VersionedRecord); err != nil {
		return model.TopologyResult{}, err
	}
	return result, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return errors.Wrapf(ErrVersionMismatch, "schema=%d codec=%d", v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
