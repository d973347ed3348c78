// Package ofx imports bank and credit card statements in OFX/QFX format.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

var (
	severityPattern = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// SGML files from some banks leave the closing bracket off bare tags.
	unclosedTagPattern = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	leadingDatePattern = regexp.MustCompile(`^\d{2}/\d{2}\s+`)
)

var merchantPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
	"POS ",
}

var genericNames = []string{
	"DEBIT",
	"CREDIT",
	"PURCHASE",
	"PAYMENT",
	"POS TRANSACTION",
	"CARD PURCHASE",
}

// Statement is the content of one OFX file.
type Statement struct {
	Accounts     []string
	Transactions []model.Transaction
}

// Parser reads OFX/QFX files.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

func normalize(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityPattern.ReplaceAllStringFunc(content, strings.ToUpper)
	return unclosedTagPattern.ReplaceAllString(content, "$1>")
}

// Parse reads a statement. Transactions come back uncategorized with their
// dedupe hash set.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*Statement, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(normalize(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	stmt := &Statement{}
	for _, msg := range resp.Bank {
		if bank, ok := msg.(*ofxgo.StatementResponse); ok {
			stmt.add(string(bank.BankAcctFrom.AcctID), bank.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if card, ok := msg.(*ofxgo.CCStatementResponse); ok {
			stmt.add(string(card.CCAcctFrom.AcctID), card.BankTranList)
		}
	}

	slog.Info("Parsed OFX file",
		"accounts", len(stmt.Accounts),
		"transactions", len(stmt.Transactions))
	return stmt, nil
}

func (s *Statement) add(accountID string, list *ofxgo.TransactionList) {
	if accountID != "" && !slices.Contains(s.Accounts, accountID) {
		s.Accounts = append(s.Accounts, accountID)
	}
	if list == nil {
		return
	}
	for _, entry := range list.Transactions {
		s.Transactions = append(s.Transactions, convert(entry, accountID))
	}
}

func convert(entry ofxgo.Transaction, accountID string) model.Transaction {
	description := strings.TrimSpace(string(entry.Name))
	if description == "" || isGeneric(description) {
		if memo := strings.TrimSpace(string(entry.Memo)); memo != "" {
			description = memo
		}
	}

	txn := model.Transaction{
		ID:           string(entry.FiTID),
		AccountID:    accountID,
		Date:         entry.DtPosted.Time,
		Description:  description,
		MerchantName: merchantName(entry, description),
		Amount:       decimal.NewFromBigRat(&entry.TrnAmt.Rat, 2),
		Status:       model.StatusUncategorized,
	}
	txn.Hash = txn.GenerateHash()
	return txn
}

func merchantName(entry ofxgo.Transaction, description string) string {
	if entry.Payee != nil && entry.Payee.Name != "" {
		return strings.TrimSpace(string(entry.Payee.Name))
	}
	return CleanMerchant(description)
}

// CleanMerchant strips card network prefixes and leading MM/DD dates from a
// raw statement description.
func CleanMerchant(raw string) string {
	name := strings.TrimSpace(raw)
	upper := strings.ToUpper(name)
	for _, prefix := range merchantPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(leadingDatePattern.ReplaceAllString(name, ""))
}

func isGeneric(name string) bool {
	return slices.Contains(genericNames, strings.ToUpper(name))
}
