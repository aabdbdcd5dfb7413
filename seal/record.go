package seal

import (
	"errors"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const recordVersion1 = 1

var errRecordVersion = errors.New("unsupported record version")

// Record is the validation state sealed into a challenge token.
type Record struct {
	Answer string
	Nonce  string
	Expiry time.Time
}

type wireRecord struct {
	Version uint8  `cbor:"0,keyasint"`
	Answer  string `cbor:"1,keyasint"`
	Nonce   string `cbor:"2,keyasint"`
	Expiry  int64  `cbor:"3,keyasint"` // unix milliseconds
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// EncodeRecord serializes r. Expiry is kept at millisecond precision.
func EncodeRecord(r Record) ([]byte, error) {
	return encMode.Marshal(wireRecord{
		Version: recordVersion1,
		Answer:  r.Answer,
		Nonce:   r.Nonce,
		Expiry:  r.Expiry.UnixMilli(),
	})
}

// DecodeRecord parses a payload produced by EncodeRecord.
func DecodeRecord(data []byte) (Record, error) {
	var w wireRecord
	if err := decMode.Unmarshal(data, &w); err != nil {
		return Record{}, err
	}
	if w.Version != recordVersion1 {
		return Record{}, errRecordVersion
	}
	return Record{
		Answer: w.Answer,
		Nonce:  w.Nonce,
		Expiry: time.UnixMilli(w.Expiry),
	}, nil
}
