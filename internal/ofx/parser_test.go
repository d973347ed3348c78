package ofx

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Sample OFX data for testing.
const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>AED
<BANKACCTFROM>
<BANKID>123456789
<ACCTID>1234567890
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-125.50
<FITID>2024011501
<NAME>POS PURCHASE DANUBE HYPERMARKET
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>-200.00
<FITID>2024012001
<NAME>PURCHASE
<MEMO>ADNOC 1234 DUBAI
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>15000.00
<FITID>2024012501
<PAYEE>
<NAME>Acme Trading LLC
<ADDR1>PO Box 1
<CITY>Dubai
<STATE>DU
<POSTALCODE>00000
<PHONE>000
</PAYEE>
<MEMO>SALARY JAN
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

const sampleCreditCardOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>ENG
</SONRS>
</SIGNONMSGSRSV1>
<CREDITCARDMSGSRSV1>
<CCSTMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<CCSTMTRS>
<CURDEF>AED
<CCACCTFROM>
<ACCTID>4111111111111111
</CCACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240110120000[0:GMT]
<TRNAMT>-45.99
<FITID>CC2024011001
<NAME>01/09 NOON.COM
</STMTTRN>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-15.00
<FITID>CC2024011501
<NAME>NETFLIX.COM
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>-500.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</CCSTMTRS>
</CCSTMTTRNRS>
</CREDITCARDMSGSRSV1>
</OFX>`

func TestParse(t *testing.T) {
	tests := []struct {
		name         string
		data         string
		wantAccounts []string
		wantCount    int
		wantErr      bool
	}{
		{
			name:         "bank statement",
			data:         sampleBankOFX,
			wantAccounts: []string{"1234567890"},
			wantCount:    3,
		},
		{
			name:         "credit card statement",
			data:         sampleCreditCardOFX,
			wantAccounts: []string{"4111111111111111"},
			wantCount:    2,
		},
		{
			name:    "invalid data",
			data:    "not valid OFX",
			wantErr: true,
		},
		{
			name:    "empty file",
			data:    "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := NewParser().Parse(context.Background(), strings.NewReader(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccounts, stmt.Accounts)
			assert.Len(t, stmt.Transactions, tt.wantCount)
		})
	}
}

func TestParse_BankTransactions(t *testing.T) {
	stmt, err := NewParser().Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 3)

	groceries := stmt.Transactions[0]
	assert.Equal(t, "2024011501", groceries.ID)
	assert.Equal(t, "POS PURCHASE DANUBE HYPERMARKET", groceries.Description)
	assert.Equal(t, "DANUBE HYPERMARKET", groceries.MerchantName)
	assert.True(t, decimal.RequireFromString("-125.50").Equal(groceries.Amount), "got %s", groceries.Amount)
	assert.Equal(t, "1234567890", groceries.AccountID)
	assert.Equal(t, model.StatusUncategorized, groceries.Status)
	assert.Equal(t, groceries.GenerateHash(), groceries.Hash)
	assert.Equal(t, 2024, groceries.Date.Year())
	assert.Equal(t, time.January, groceries.Date.Month())
	assert.Equal(t, 15, groceries.Date.Day())

	fuel := stmt.Transactions[1]
	assert.Equal(t, "ADNOC 1234 DUBAI", fuel.Description, "generic name falls back to memo")
	assert.Equal(t, "ADNOC 1234 DUBAI", fuel.MerchantName)

	salary := stmt.Transactions[2]
	assert.Equal(t, "SALARY JAN", salary.Description)
	assert.Equal(t, "Acme Trading LLC", salary.MerchantName, "payee is the merchant")
	assert.True(t, decimal.RequireFromString("15000").Equal(salary.Amount))
}

func TestParse_CreditCardTransactions(t *testing.T) {
	stmt, err := NewParser().Parse(context.Background(), strings.NewReader(sampleCreditCardOFX))
	require.NoError(t, err)
	require.Len(t, stmt.Transactions, 2)

	noon := stmt.Transactions[0]
	assert.Equal(t, "CC2024011001", noon.ID)
	assert.Equal(t, "NOON.COM", noon.MerchantName)
	assert.True(t, decimal.RequireFromString("-45.99").Equal(noon.Amount))
	assert.Equal(t, "4111111111111111", noon.AccountID)

	netflix := stmt.Transactions[1]
	assert.Equal(t, "NETFLIX.COM", netflix.Description)
	assert.True(t, decimal.RequireFromString("-15").Equal(netflix.Amount))
}

func TestParse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().Parse(ctx, strings.NewReader(sampleBankOFX))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCleanMerchant(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "remove POS prefix",
			input:    "POS PURCHASE ADNOC STATION 42",
			expected: "ADNOC STATION 42",
		},
		{
			name:     "remove debit card prefix",
			input:    "DEBIT CARD PURCHASE Carrefour MOE",
			expected: "Carrefour MOE",
		},
		{
			name:     "remove leading date",
			input:    "12/31 CAREEM RIDE",
			expected: "CAREEM RIDE",
		},
		{
			name:     "keep clean name",
			input:    "NETFLIX.COM",
			expected: "NETFLIX.COM",
		},
		{
			name:     "trim whitespace",
			input:    "  NOON.COM  ",
			expected: "NOON.COM",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CleanMerchant(tt.input))
		})
	}
}

func TestParse_ReimportHashesMatch(t *testing.T) {
	parser := NewParser()

	first, err := parser.Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)
	second, err := parser.Parse(context.Background(), strings.NewReader(sampleBankOFX))
	require.NoError(t, err)

	for i := range first.Transactions {
		assert.Equal(t, first.Transactions[i].Hash, second.Transactions[i].Hash)
	}
	assert.NotEqual(t, first.Transactions[0].Hash, first.Transactions[1].Hash)
}
