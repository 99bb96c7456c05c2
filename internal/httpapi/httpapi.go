package httpapi

import (
	"clawhammer/internal/xverify"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Deps struct {
	DB     *pgxpool.Pool
	Pepper string

	Verify            *xverify.Engine
	VerifyHoldMessage string
}
