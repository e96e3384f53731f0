package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Postgres implementa o repositório particionado de jogos e betslips.
// A partição é uma coluna de estado; toda movimentação entre partições é um
// UPDATE condicional (compare-and-swap), nunca delete+insert.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
)

// UpsertResult indica o efeito de um upsert de jogo.
type UpsertResult int

const (
	UpsertCreated UpsertResult = iota
	UpsertUpdated
	UpsertSkipped // jogo já está em settled/processing/archived; nada a fazer
)

// UpsertPending cria ou atualiza um jogo na partição pending.
// Jogos que já saíram de pending nunca são recriados nem tocados,
// mesmo que o feed ainda os reporte como ativos.
func (p *Postgres) UpsertPending(ctx context.Context, g Game) (UpsertResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertSkipped, err
	}
	defer tx.Rollback()

	var state State
	err = tx.QueryRowContext(ctx, `SELECT state FROM games WHERE id=$1 FOR UPDATE`, g.ID).Scan(&state)
	switch {
	case err == sql.ErrNoRows:
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO games (id,home_id,away_id,home_team,away_team,league,status,date,result,home_goal_details,away_goal_details,state)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,'pending')`,
			g.ID, g.HomeID, g.AwayID, g.HomeTeam, g.AwayTeam, g.League, g.Status, g.Date,
			g.Result, g.HomeGoalDetails, g.AwayGoalDetails,
		); err != nil {
			return UpsertSkipped, err
		}
		return UpsertCreated, tx.Commit()
	case err != nil:
		return UpsertSkipped, err
	}

	if state != StatePending {
		return UpsertSkipped, tx.Commit()
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE games SET home_id=$2, away_id=$3, home_team=$4, away_team=$5, league=$6,
			status=$7, date=$8, result=NULLIF($9,''), home_goal_details=$10, away_goal_details=$11,
			updated_at=NOW()
		WHERE id=$1 AND state='pending'`,
		g.ID, g.HomeID, g.AwayID, g.HomeTeam, g.AwayTeam, g.League, g.Status, g.Date,
		g.Result, g.HomeGoalDetails, g.AwayGoalDetails,
	); err != nil {
		return UpsertSkipped, err
	}
	return UpsertUpdated, tx.Commit()
}

// SettleGame move um jogo encerrado de pending para settled, gravando o
// status/resultado finais. Se o jogo nunca foi visto, insere direto em
// settled. Jogos já em processing/archived/settled ficam como estão.
func (p *Postgres) SettleGame(ctx context.Context, g Game) (UpsertResult, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertSkipped, err
	}
	defer tx.Rollback()

	var state State
	err = tx.QueryRowContext(ctx, `SELECT state FROM games WHERE id=$1 FOR UPDATE`, g.ID).Scan(&state)
	switch {
	case err == sql.ErrNoRows:
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO games (id,home_id,away_id,home_team,away_team,league,status,date,result,home_goal_details,away_goal_details,state)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,'settled')`,
			g.ID, g.HomeID, g.AwayID, g.HomeTeam, g.AwayTeam, g.League, g.Status, g.Date,
			g.Result, g.HomeGoalDetails, g.AwayGoalDetails,
		); err != nil {
			return UpsertSkipped, err
		}
		return UpsertCreated, tx.Commit()
	case err != nil:
		return UpsertSkipped, err
	}

	if state != StatePending {
		return UpsertSkipped, tx.Commit()
	}

	// UPDATE único: remove da partição pending e grava em settled num só passo,
	// nenhum leitor enxerga o jogo em duas partições ou em nenhuma.
	if _, err = tx.ExecContext(ctx, `
		UPDATE games SET status=$2, result=NULLIF($3,''), home_goal_details=$4, away_goal_details=$5,
			state='settled', updated_at=NOW()
		WHERE id=$1 AND state='pending'`,
		g.ID, g.Status, g.Result, g.HomeGoalDetails, g.AwayGoalDetails,
	); err != nil {
		return UpsertSkipped, err
	}
	return UpsertUpdated, tx.Commit()
}

// GetGame busca um jogo pelo id, em qualquer partição.
func (p *Postgres) GetGame(ctx context.Context, id int64) (Game, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT id,home_id,away_id,home_team,away_team,league,status,date,COALESCE(result,''),
			home_goal_details,away_goal_details,state
		FROM games WHERE id=$1`, id)
	return scanGame(row)
}

// ListGamesByState lista os jogos de uma partição ordenados por data.
func (p *Postgres) ListGamesByState(ctx context.Context, state State) ([]Game, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id,home_id,away_id,home_team,away_team,league,status,date,COALESCE(result,''),
			home_goal_details,away_goal_details,state
		FROM games WHERE state=$1 ORDER BY date ASC, id ASC`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var games []Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

type rowScanner interface{ Scan(dest ...any) error }

func scanGame(r rowScanner) (Game, error) {
	var g Game
	err := r.Scan(&g.ID, &g.HomeID, &g.AwayID, &g.HomeTeam, &g.AwayTeam, &g.League,
		&g.Status, &g.Date, &g.Result, &g.HomeGoalDetails, &g.AwayGoalDetails, &g.State)
	if err == sql.ErrNoRows {
		return Game{}, ErrNotFound
	}
	return g, err
}

// GetSlip busca um betslip pelo endereço, com suas apostas na ordem original.
func (p *Postgres) GetSlip(ctx context.Context, address string) (Slip, error) {
	var s Slip
	err := p.db.QueryRowContext(ctx, `
		SELECT address, account_id, COALESCE(email,''), state, created_at
		FROM slips WHERE address=$1`, address).
		Scan(&s.Address, &s.AccountID, &s.Email, &s.State, &s.CreatedAt)
	if err == sql.ErrNoRows {
		return Slip{}, ErrNotFound
	}
	if err != nil {
		return Slip{}, err
	}

	s.Bets, err = p.slipBets(ctx, s.Address)
	return s, err
}

// ListSlipsByState lista os betslips de uma partição, com apostas carregadas.
func (p *Postgres) ListSlipsByState(ctx context.Context, state State) ([]Slip, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT address, account_id, COALESCE(email,''), state, created_at
		FROM slips WHERE state=$1 ORDER BY created_at ASC`, state)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slips []Slip
	for rows.Next() {
		var s Slip
		if err := rows.Scan(&s.Address, &s.AccountID, &s.Email, &s.State, &s.CreatedAt); err != nil {
			return nil, err
		}
		slips = append(slips, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range slips {
		if slips[i].Bets, err = p.slipBets(ctx, slips[i].Address); err != nil {
			return nil, err
		}
	}
	return slips, nil
}

func (p *Postgres) slipBets(ctx context.Context, address string) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT game_id, guess, stake_milli
		FROM bets WHERE slip_address=$1 ORDER BY position ASC`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bets []Bet
	for rows.Next() {
		var b Bet
		if err := rows.Scan(&b.GameID, &b.Guess, &b.StakeMilli); err != nil {
			return nil, err
		}
		bets = append(bets, b)
	}
	return bets, rows.Err()
}

// MoveSlipState move um betslip entre partições com compare-and-swap.
// Retorna ErrStateConflict se o slip não estiver mais na partição de origem,
// o que torna a confirmação idempotente sob reexecução e corrida.
func (p *Postgres) MoveSlipState(ctx context.Context, address string, from, to State) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE slips SET state=$3, updated_at=NOW() WHERE address=$1 AND state=$2`,
		address, from, to)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStateConflict
	}
	return nil
}

// UpsertAccountLedger grava o extrato de uma conta, sobrescrevendo por inteiro.
// O payload é o JSON canônico produzido pelo ledger builder; reexecutar o
// gerador produz exatamente o mesmo registro.
func (p *Postgres) UpsertAccountLedger(ctx context.Context, accountID string, payload []byte) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO account_ledgers (account_id, payload, generated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account_id) DO UPDATE SET
			payload      = EXCLUDED.payload,
			generated_at = EXCLUDED.generated_at`,
		accountID, payload)
	if err != nil {
		return fmt.Errorf("upsert ledger %s: %w", accountID, err)
	}
	return nil
}
