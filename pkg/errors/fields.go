package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stripe/stripe-go/v84"
	"go.mongodb.org/mongo-driver/mongo"
)

// LogFields flattens err into structured log fields: the typed code, the
// unwrap chain, and whatever the driver or SDK at the bottom reported.
func LogFields(err error) map[string]any {
	if err == nil {
		return nil
	}
	fields := map[string]any{"error_message": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.code)
	}

	var chain []string
	for e := err; e != nil; e = stderrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	fields["error_chain"] = chain

	var (
		pgxErr   *pgconn.PgError
		pqErr    *pq.Error
		stripeEr *stripe.Error
		writeErr mongo.WriteException
		cmdErr   mongo.CommandError
	)
	switch {
	case stderrors.As(err, &pgxErr):
		fields["pg_code"] = pgxErr.Code
		fields["pg_constraint"] = pgxErr.ConstraintName
		fields["pg_detail"] = pgxErr.Detail
	case stderrors.As(err, &pqErr):
		fields["pg_code"] = string(pqErr.Code)
		fields["pg_constraint"] = pqErr.Constraint
		fields["pg_detail"] = pqErr.Detail
	case stderrors.As(err, &stripeEr):
		fields["stripe_type"] = string(stripeEr.Type)
		fields["stripe_code"] = string(stripeEr.Code)
		fields["stripe_request_id"] = stripeEr.RequestID
		fields["stripe_status"] = stripeEr.HTTPStatusCode
	case stderrors.As(err, &writeErr):
		codes := make([]int, 0, len(writeErr.WriteErrors))
		for _, we := range writeErr.WriteErrors {
			codes = append(codes, we.Code)
		}
		fields["mongo_codes"] = codes
	case stderrors.As(err, &cmdErr):
		fields["mongo_codes"] = []int{int(cmdErr.Code)}
	}
	return fields
}
