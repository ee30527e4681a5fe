package storage

import "context"

type VoiceMaster struct {
	ChannelID  string
	CategoryID string
}

func (s *Store) UpsertVoiceMaster(ctx context.Context, master VoiceMaster) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voice_masters (channel_id, category_id) VALUES (?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET category_id = excluded.category_id
	`, master.ChannelID, master.CategoryID)
	return err
}

func (s *Store) DeleteVoiceMaster(ctx context.Context, channelID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM voice_masters WHERE channel_id = ?`, channelID)
	return err
}

func (s *Store) ListVoiceMasters(ctx context.Context) ([]VoiceMaster, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel_id, category_id FROM voice_masters`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var masters []VoiceMaster
	for rows.Next() {
		var master VoiceMaster
		if err := rows.Scan(&master.ChannelID, &master.CategoryID); err != nil {
			return nil, err
		}
		masters = append(masters, master)
	}
	return masters, rows.Err()
}
