// Package bigquery streams successfully ingested transactions into BigQuery
// for downstream reporting consumers. The export is an at-least-once side
// channel: the relational store stays the source of truth and export failures
// never fail an ingestion.
package bigquery

import (
	"context"
	"fmt"
	"time"

	bq "cloud.google.com/go/bigquery"
	"google.golang.org/api/option"

	"github.com/Iron-Cow/MonoProject/internal/domain"
)

const transactionsTable = "transactions"

// TransactionRow is the export schema of one transaction.
type TransactionRow struct {
	TransactionID  string    `bigquery:"transaction_id"`
	SubAccountID   string    `bigquery:"sub_account_id"`
	SubAccountKind string    `bigquery:"sub_account_kind"`
	Time           time.Time `bigquery:"time"`
	Amount         int64     `bigquery:"amount"`
	CurrencyCode   int       `bigquery:"currency_code"`
	Balance        int64     `bigquery:"balance"`
	MCC            int       `bigquery:"mcc"`
	Description    string    `bigquery:"description"`
	Hold           bool      `bigquery:"hold"`
	ExportedTS     time.Time `bigquery:"exported_ts"`
}

// Exporter streams rows into <project>.<dataset>.transactions.
type Exporter struct {
	client  *bq.Client
	dataset string
}

// NewExporter creates an exporter with a shared BigQuery client.
func NewExporter(ctx context.Context, projectID, datasetID string, opts ...option.ClientOption) (*Exporter, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("bigquery project and dataset are required")
	}
	client, err := bq.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &Exporter{client: client, dataset: datasetID}, nil
}

// ExportTransaction streams one stored transaction.
func (e *Exporter) ExportTransaction(ctx context.Context, tx *domain.Transaction) error {
	row := &TransactionRow{
		TransactionID:  tx.ID,
		SubAccountID:   tx.SubAccountID,
		SubAccountKind: string(tx.SubAccountKind),
		Time:           time.Unix(tx.Time, 0).UTC(),
		Amount:         tx.Amount,
		CurrencyCode:   tx.CurrencyCode,
		Balance:        tx.Balance,
		MCC:            tx.MCC,
		Description:    tx.Description,
		Hold:           tx.Hold,
		ExportedTS:     time.Now().UTC(),
	}

	inserter := e.client.Dataset(e.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("export transaction %s: %w", tx.ID, err)
	}
	return nil
}

// Close closes the BigQuery client connection.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
