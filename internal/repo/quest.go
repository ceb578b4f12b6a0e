package repo

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/apperr"
	"github.com/Mnehmos/mnehmos.rpg.mcp/internal/model"
)

type QuestRepo struct{ db *sql.DB }

func NewQuestRepo(db *sql.DB) *QuestRepo { return &QuestRepo{db: db} }

func (r *QuestRepo) Create(ctx context.Context, q *model.Quest) error {
	objectives, rewards, prereqs, err := marshalQuest(q)
	if err != nil {
		return apperr.Storage(err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO quests (id, world_id, name, description, status, objectives, rewards, prerequisites, giver)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.WorldID, q.Name, q.Description, string(q.Status), objectives, rewards, prereqs, nullStr(q.Giver))
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

func (r *QuestRepo) FindByID(ctx context.Context, id string) (*model.Quest, error) {
	row := r.db.QueryRowContext(ctx, questSelect+` WHERE id = ?`, id)
	q, err := scanQuest(row)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("quest", id)
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return q, nil
}

func (r *QuestRepo) List(ctx context.Context, worldID string) ([]*model.Quest, error) {
	rows, err := r.db.QueryContext(ctx, questSelect+` WHERE world_id = ?`, worldID)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer rows.Close()
	var out []*model.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, apperr.Storage(err)
		}
		out = append(out, q)
	}
	return out, apperr.Storage(rows.Err())
}

func (r *QuestRepo) Update(ctx context.Context, q *model.Quest) error {
	objectives, rewards, prereqs, err := marshalQuest(q)
	if err != nil {
		return apperr.Storage(err)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE quests SET name=?, description=?, status=?, objectives=?, rewards=?, prerequisites=?, giver=? WHERE id = ?`,
		q.Name, q.Description, string(q.Status), objectives, rewards, prereqs, nullStr(q.Giver), q.ID)
	if err != nil {
		return apperr.Storage(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.NotFound("quest", q.ID)
	}
	return nil
}

func (r *QuestRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quests WHERE id = ?`, id)
	if err != nil {
		return apperr.Storage(err)
	}
	return nil
}

const questSelect = `SELECT id, world_id, name, description, status, objectives, rewards, prerequisites, giver FROM quests`

func marshalQuest(q *model.Quest) (objectives, rewards, prereqs string, err error) {
	ob, err := json.Marshal(q.Objectives)
	if err != nil {
		return "", "", "", err
	}
	rw, err := json.Marshal(q.Rewards)
	if err != nil {
		return "", "", "", err
	}
	pr, err := json.Marshal(q.Prerequisites)
	if err != nil {
		return "", "", "", err
	}
	return string(ob), string(rw), string(pr), nil
}

func scanQuest(row interface{ Scan(...any) error }) (*model.Quest, error) {
	var q model.Quest
	var giver sql.NullString
	var objectives, rewards, prereqs string
	if err := row.Scan(&q.ID, &q.WorldID, &q.Name, &q.Description, &q.Status, &objectives, &rewards, &prereqs, &giver); err != nil {
		return nil, err
	}
	q.Giver = giver.String
	_ = json.Unmarshal([]byte(objectives), &q.Objectives)
	_ = json.Unmarshal([]byte(rewards), &q.Rewards)
	_ = json.Unmarshal([]byte(prereqs), &q.Prerequisites)
	return &q, nil
}

// --- Quest log ---

type QuestLogRepo struct{ db *sql.DB }

func NewQuestLogRepo(db *sql.DB) *QuestLogRepo { return &QuestLogRepo{db: db} }

func (r *QuestLogRepo) Get(ctx context.Context, characterID string) (*model.QuestLog, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT character_id, active_quests, completed_quests, failed_quests FROM quest_logs WHERE character_id = ?`, characterID)
	log, err := scanQuestLog(row)
	if err == sql.ErrNoRows {
		return &model.QuestLog{CharacterID: characterID}, nil
	}
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return log, nil
}

// GetQuestLogTx reads inside an existing transaction, used by quest completion
// to avoid a lost-update race against concurrent mutations on the same log.
func GetQuestLogTx(ctx context.Context, tx *sql.Tx, characterID string) (*model.QuestLog, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT character_id, active_quests, completed_quests, failed_quests FROM quest_logs WHERE character_id = ?`, characterID)
	log, err := scanQuestLog(row)
	if err == sql.ErrNoRows {
		return &model.QuestLog{CharacterID: characterID}, nil
	}
	return log, err
}

func PutQuestLogTx(ctx context.Context, tx *sql.Tx, log *model.QuestLog) error {
	active, _ := json.Marshal(log.ActiveQuests)
	completed, _ := json.Marshal(log.CompletedQuests)
	failed, _ := json.Marshal(log.FailedQuests)
	_, err := tx.ExecContext(ctx,
		`INSERT INTO quest_logs (character_id, active_quests, completed_quests, failed_quests) VALUES (?, ?, ?, ?)
		 ON CONFLICT(character_id) DO UPDATE SET active_quests=excluded.active_quests, completed_quests=excluded.completed_quests, failed_quests=excluded.failed_quests`,
		log.CharacterID, string(active), string(completed), string(failed))
	return err
}

func (r *QuestLogRepo) Put(ctx context.Context, log *model.QuestLog) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error { return PutQuestLogTx(ctx, tx, log) })
}

func scanQuestLog(row interface{ Scan(...any) error }) (*model.QuestLog, error) {
	var log model.QuestLog
	var active, completed, failed string
	if err := row.Scan(&log.CharacterID, &active, &completed, &failed); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(active), &log.ActiveQuests)
	_ = json.Unmarshal([]byte(completed), &log.CompletedQuests)
	_ = json.Unmarshal([]byte(failed), &log.FailedQuests)
	return &log, nil
}
