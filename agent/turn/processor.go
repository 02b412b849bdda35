package turn

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/kaiyuanlo/onboarding-copilot/agent/contract"
	turnnode "github.com/kaiyuanlo/onboarding-copilot/agent/nodes"
	promptx "github.com/kaiyuanlo/onboarding-copilot/agent/prompt"
	statex "github.com/kaiyuanlo/onboarding-copilot/agent/state"
)

// Processor drives one conversational turn through the compiled graph. The
// whole turn runs inside one transaction: either the record, the product
// rows, and both messages land together, or none of them do.
type Processor struct {
	store    statex.Store
	oracle   contractx.Oracle
	exporter contractx.Exporter
	prompts  promptx.PromptSet

	graphRunner compose.Runnable[turnnode.GraphInput, turnnode.GraphOutput]

	now func() time.Time
}

func New(store statex.Store, oracle contractx.Oracle, exporter contractx.Exporter) (*Processor, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if oracle == nil {
		return nil, errors.New("extraction oracle is required")
	}

	p := &Processor{
		store:    store,
		oracle:   oracle,
		exporter: exporter,
		prompts:  promptx.LoadPromptSet(),
		now:      time.Now,
	}

	graphRunner, err := p.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	p.graphRunner = graphRunner

	return p, nil
}

type txStoreKey struct{}

func (p *Processor) storeFrom(ctx context.Context) statex.Store {
	if tx, ok := ctx.Value(txStoreKey{}).(statex.Store); ok {
		return tx
	}
	return p.store
}

// HandleMessage processes one user message and returns the assistant reply.
// When the turn completes the collection, the export fires after the
// transaction commits; export failures are logged, never user-visible.
func (p *Processor) HandleMessage(ctx context.Context, userID, sessionID int64, text string) (turnnode.GraphOutput, error) {
	var out turnnode.GraphOutput
	err := p.store.RunInTx(ctx, func(ctx context.Context, tx statex.Store) error {
		res, err := p.graphRunner.Invoke(context.WithValue(ctx, txStoreKey{}, tx), turnnode.GraphInput{
			UserID:    userID,
			SessionID: sessionID,
			Text:      text,
		})
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return turnnode.GraphOutput{}, err
	}

	if out.Completed {
		p.export(ctx, sessionID)
	}

	return out, nil
}

func (p *Processor) export(ctx context.Context, sessionID int64) {
	if p.exporter == nil {
		return
	}

	record, err := p.store.RecordBySession(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("export: load record")
		return
	}
	products, err := p.store.ListProducts(ctx, record.ID)
	if err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("export: load products")
		return
	}

	if err := p.exporter.Export(ctx, record.ExportFormat(products)); err != nil {
		log.Error().Err(err).Int64("session_id", sessionID).Msg("export failed")
		return
	}
	log.Info().Int64("session_id", sessionID).Msg("record exported")
}

// StartSession opens a fresh session for the user. Company data and products
// from the previous current record carry over, and the stage resyncs onto
// them, so a returning user resumes instead of restarting.
func (p *Processor) StartSession(ctx context.Context, userID int64) (*statex.Session, *statex.Record, error) {
	var (
		session *statex.Session
		record  *statex.Record
	)

	err := p.store.RunInTx(ctx, func(ctx context.Context, tx statex.Store) error {
		prev, err := tx.CurrentRecord(ctx, userID)
		if err != nil && !errors.Is(err, statex.ErrRecordNotFound) {
			return err
		}

		session, record, err = tx.CreateSession(ctx, userID)
		if err != nil {
			return err
		}
		if prev == nil {
			return nil
		}

		record.Industry = prev.Industry
		record.CapitalAmount = prev.CapitalAmount
		record.InventionPatentCount = prev.InventionPatentCount
		record.UtilityPatentCount = prev.UtilityPatentCount
		record.CertificationCount = prev.CertificationCount
		record.ESGCertificationCount = prev.ESGCertificationCount
		record.ESGCertification = prev.ESGCertification
		record.Resync()
		if err := tx.SaveRecord(ctx, record); err != nil {
			return err
		}

		products, err := tx.ListProducts(ctx, prev.ID)
		if err != nil {
			return err
		}
		for _, product := range products {
			copied := product
			copied.ID = 0
			copied.OnboardingID = record.ID
			if err := tx.InsertProduct(ctx, &copied); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return session, record, nil
}
