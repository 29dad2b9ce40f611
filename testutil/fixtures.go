package testutil

import (
	"embed"
	"fmt"
	"time"

	"github.com/c360/coredata/message"
	"github.com/c360/coredata/pkg/idgen"
	"github.com/c360/coredata/pkg/timestamp"
)

//go:embed testdata
var fixtures embed.FS

// Fixture returns a copy of testdata/<name>. It panics when the file does not
// exist: a missing fixture is a broken test, not a runtime condition.
func Fixture(name string) []byte {
	data, err := fixtures.ReadFile("testdata/" + name)
	if err != nil {
		panic(fmt.Sprintf("testutil: fixture %q: %v", name, err))
	}
	return data
}

// PACS008XML is an outgoing pacs.008.001.07 credit transfer with two transactions.
func PACS008XML() []byte { return Fixture("pacs008_001_07_cct_outgoing.xml") }

// PACS008MissingMsgID is well-formed XML whose group header lacks MsgId.
func PACS008MissingMsgID() []byte { return Fixture("pacs008_missing_msgid.xml") }

// PAIN001JSON is a pain.001.001.09 initiation already in canonical tree form.
func PAIN001JSON() []byte { return Fixture("pain001_001_09.json") }

// GenericOrderJSON is a non-ISO document for the generic schema.
func GenericOrderJSON() []byte { return Fixture("generic_order.json") }

// FixedTime is the instant returned by FixedClock.
var FixedTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// FixedClock returns a clock pinned to FixedTime.
func FixedClock() timestamp.Clock {
	return timestamp.Fixed(FixedTime)
}

// NewIDs returns a deterministic id generator starting at 1.
func NewIDs() *idgen.Sequence {
	return idgen.NewSequence(1)
}

// NewPACS008Message builds a message around the pacs.008 fixture as inline
// ISO 20022 XML.
func NewPACS008Message(ids idgen.Generator, opts ...message.Option) (*message.Message, error) {
	payload := message.NewInline(PACS008XML(), message.FormatXML, message.SchemaISO20022, message.EncodingUTF8)
	opts = append([]message.Option{message.WithClock(FixedClock())}, opts...)
	return message.New(ids, payload, "test_tenant", "test_origin", opts...)
}
