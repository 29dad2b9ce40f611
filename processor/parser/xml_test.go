package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/coredata/pkg/tree"
	"github.com/c360/coredata/testutil"
)

func decodeXML(t *testing.T, doc string) any {
	t.Helper()
	result, err := NewXMLDecoder().Decode([]byte(doc))
	require.NoError(t, err)
	return result
}

func TestXMLDecoder_Mapping(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want any
	}{
		{
			name: "text leaf collapses",
			doc:  `<A><B>hello</B></A>`,
			want: map[string]any{"A": map[string]any{"B": "hello"}},
		},
		{
			name: "empty element is empty string",
			doc:  `<A><B/></A>`,
			want: map[string]any{"A": map[string]any{"B": ""}},
		},
		{
			name: "attributes and text",
			doc:  `<Amt Ccy="EUR"> 10.00 </Amt>`,
			want: map[string]any{"Amt": map[string]any{"@Ccy": "EUR", "#text": "10.00"}},
		},
		{
			name: "attribute only",
			doc:  `<A flag="y"/>`,
			want: map[string]any{"A": map[string]any{"@flag": "y"}},
		},
		{
			name: "repeated siblings become an array",
			doc:  `<A><L>1</L><L>2</L><L>3</L></A>`,
			want: map[string]any{"A": map[string]any{"L": []any{"1", "2", "3"}}},
		},
		{
			name: "repeated complex siblings",
			doc:  `<A><T><Id>1</Id></T><T><Id>2</Id></T></A>`,
			want: map[string]any{"A": map[string]any{"T": []any{
				map[string]any{"Id": "1"},
				map[string]any{"Id": "2"},
			}}},
		},
		{
			name: "mixed content keeps text",
			doc:  `<P>before<B>bold</B>after</P>`,
			want: map[string]any{"P": map[string]any{"B": "bold", "#text": "beforeafter"}},
		},
		{
			name: "namespaces",
			doc:  `<x:Doc xmlns:x="urn:x" xmlns="urn:d"><x:V>1</x:V></x:Doc>`,
			want: map[string]any{"Doc": map[string]any{
				"@xmlns:x": "urn:x",
				"@xmlns":   "urn:d",
				"V":        "1",
			}},
		},
		{
			name: "comments and processing instructions ignored",
			doc:  "<?xml version=\"1.0\"?>\n<!-- c --><A><?pi x?><B>1</B><!-- d --></A>\n",
			want: map[string]any{"A": map[string]any{"B": "1"}},
		},
		{
			name: "entities and CDATA",
			doc:  `<A><B>a &amp; b</B><C><![CDATA[<raw>]]></C></A>`,
			want: map[string]any{"A": map[string]any{"B": "a & b", "C": "<raw>"}},
		},
		{
			name: "declared non-UTF-8 encoding is ignored",
			doc:  `<?xml version="1.0" encoding="ISO-8859-1"?><A>Zürich</A>`,
			want: map[string]any{"A": "Zürich"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeXML(t, tt.doc))
		})
	}
}

func TestXMLDecoder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"empty", "", ErrEmptyData},
		{"whitespace", " \n\t", ErrEmptyData},
		{"no root", `<?xml version="1.0"?><!-- only a comment -->`, ErrNoRootElement},
		{"two roots", `<A/><B/>`, ErrMultipleRoots},
		{"unclosed", `<A><B>1</B>`, nil},
		{"mismatched", `<A><B>1</A></B>`, nil},
		{"text outside root", `<A/>junk`, nil},
		{"too deep", strings.Repeat("<a>", maxXMLDepth+1) + strings.Repeat("</a>", maxXMLDepth+1), ErrTooDeep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewXMLDecoder().Decode([]byte(tt.doc))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestXMLDecoder_PACS008(t *testing.T) {
	doc, err := NewXMLDecoder().Decode(testutil.PACS008XML())
	require.NoError(t, err)

	get := func(path string) any {
		v, ok := tree.Get(doc, tree.Path(strings.Split(path, ".")))
		require.True(t, ok, path)
		return v
	}

	assert.Equal(t, "urn:iso:std:iso:20022:tech:xsd:pacs.008.001.07", get("Document.@xmlns"))
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema-instance", get("Document.@xmlns:xsi"))
	assert.Equal(t, "CCT-OUT-20240301-0001", get("Document.FIToFICstmrCdtTrf.GrpHdr.MsgId"))
	assert.Equal(t, "2", get("Document.FIToFICstmrCdtTrf.GrpHdr.NbOfTxs"))

	txs, ok := get("Document.FIToFICstmrCdtTrf.CdtTrfTxInf").([]any)
	require.True(t, ok)
	require.Len(t, txs, 2)

	assert.Equal(t, map[string]any{"@Ccy": "EUR", "#text": "1000.00"},
		get("Document.FIToFICstmrCdtTrf.CdtTrfTxInf.0.IntrBkSttlmAmt"))
	assert.Equal(t, []any{"Hauptstrasse 1", "10115 Berlin"},
		get("Document.FIToFICstmrCdtTrf.CdtTrfTxInf.0.Dbtr.PstlAdr.AdrLine"))
	assert.Equal(t, "Voorbeeld BV", get("Document.FIToFICstmrCdtTrf.CdtTrfTxInf.1.Cdtr.Nm"))
}
