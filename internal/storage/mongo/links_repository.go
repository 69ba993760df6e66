package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/orglinks/orglinks/internal/infrastructure/db"
	"github.com/orglinks/orglinks/internal/processing/links"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LinksRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
}

type linkDoc struct {
	ID          string     `bson:"_id"`
	OriginalURL string     `bson:"originalUrl"`
	ShortCode   string     `bson:"shortCode"`
	OrgID       string     `bson:"orgId"`
	OrgLinkID   int64      `bson:"orgLinkId"`
	Title       string     `bson:"title,omitempty"`
	Description string     `bson:"description,omitempty"`
	CreatedBy   string     `bson:"createdBy"`
	ClickCount  int64      `bson:"clickCount"`
	CreatedAt   time.Time  `bson:"createdAt"`
	ExpiresAt   *time.Time `bson:"expiresAt,omitempty"`
	Active      bool       `bson:"active"`
}

func NewLinksRepository(m *db.Mongo) (*LinksRepository, error) {
	repo := &LinksRepository{
		coll:     m.Collection("links"),
		counters: m.Collection("org_link_counters"),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "shortCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_shortCode"),
		},
		{
			Keys:    bson.D{{Key: "orgId", Value: 1}, {Key: "orgLinkId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_org_link_id"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *LinksRepository) Insert(ctx context.Context, link *links.Link) error {
	_, err := r.coll.InsertOne(ctx, toLinkDoc(link))
	if err == nil {
		return nil
	}

	if mongo.IsDuplicateKeyError(err) {
		return links.ErrCodeTaken
	}

	return err
}

func (r *LinksRepository) FindByID(ctx context.Context, id string) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}

	return nil, err
}

func (r *LinksRepository) FindByRef(ctx context.Context, ref links.Ref) (*links.Link, error) {
	var doc linkDoc
	err := r.coll.FindOne(ctx, refFilter(ref)).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, links.ErrNotFound
	}

	return nil, err
}

func (r *LinksRepository) ExistsByShortCode(ctx context.Context, code string) (bool, error) {
	err := r.coll.FindOne(ctx, bson.M{"shortCode": code},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// NextOrgLinkID bumps the organization's counter document with an upserting
// $inc, which is atomic on the server even under concurrent creations.
func (r *LinksRepository) NextOrgLinkID(ctx context.Context, orgID string) (int64, error) {
	var counter struct {
		Value int64 `bson:"value"`
	}
	err := r.counters.FindOneAndUpdate(
		ctx,
		bson.M{"_id": orgID},
		bson.M{"$inc": bson.M{"value": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Value, nil
}

func (r *LinksRepository) ResolveAndRecordClick(ctx context.Context, ref links.Ref, at time.Time) (*links.Link, error) {
	filter := refFilter(ref)
	filter["active"] = true
	filter["$or"] = bson.A{
		bson.M{"expiresAt": bson.M{"$exists": false}},
		bson.M{"expiresAt": nil},
		bson.M{"expiresAt": bson.M{"$gt": at.UTC()}},
	}

	var doc linkDoc
	err := r.coll.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$inc": bson.M{"clickCount": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == nil {
		return mapLinkDoc(doc), nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, findErr := r.FindByRef(ctx, ref)
		if findErr != nil {
			return nil, findErr
		}
		if existing.Active {
			return nil, links.ErrExpired
		}
		return nil, links.ErrNotFound
	}

	return nil, err
}

// Update writes the caller-mutable fields only. clickCount and active never
// appear in the $set, so clicks or a deactivation landing after the caller's
// read are not erased by the write-back.
func (r *LinksRepository) Update(ctx context.Context, link *links.Link) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": link.ID}, bson.M{"$set": bson.M{
		"originalUrl": link.OriginalURL,
		"shortCode":   link.ShortCode,
		"title":       link.Title,
		"description": link.Description,
		"expiresAt":   link.ExpiresAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return links.ErrCodeTaken
		}
		return err
	}
	if res.MatchedCount == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return links.ErrNotFound
	}
	return nil
}

func (r *LinksRepository) ListByOrg(ctx context.Context, orgID string, limit int) ([]*links.Link, error) {
	cursor, err := r.coll.Find(ctx,
		bson.M{"orgId": orgID, "active": true},
		options.Find().SetSort(bson.D{{Key: "orgLinkId", Value: 1}}).SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*links.Link
	for cursor.Next(ctx) {
		var doc linkDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, mapLinkDoc(doc))
	}
	return out, cursor.Err()
}

// refFilter renders the set fields of ref as a Mongo filter.
func refFilter(ref links.Ref) bson.M {
	filter := bson.M{}
	if ref.ShortCode != "" {
		filter["shortCode"] = ref.ShortCode
	}
	if ref.OrgID != "" {
		filter["orgId"] = ref.OrgID
	}
	if ref.OrgLinkID != 0 {
		filter["orgLinkId"] = ref.OrgLinkID
	}
	if len(filter) == 0 {
		filter["_id"] = nil
	}
	return filter
}

func toLinkDoc(link *links.Link) linkDoc {
	return linkDoc{
		ID:          link.ID,
		OriginalURL: link.OriginalURL,
		ShortCode:   link.ShortCode,
		OrgID:       link.OrgID,
		OrgLinkID:   link.OrgLinkID,
		Title:       link.Title,
		Description: link.Description,
		CreatedBy:   link.CreatedBy,
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt.UTC(),
		ExpiresAt:   link.ExpiresAt,
		Active:      link.Active,
	}
}

func mapLinkDoc(doc linkDoc) *links.Link {
	return &links.Link{
		ID:          doc.ID,
		OriginalURL: doc.OriginalURL,
		ShortCode:   doc.ShortCode,
		OrgID:       doc.OrgID,
		OrgLinkID:   doc.OrgLinkID,
		Title:       doc.Title,
		Description: doc.Description,
		CreatedBy:   doc.CreatedBy,
		ClickCount:  doc.ClickCount,
		CreatedAt:   doc.CreatedAt,
		ExpiresAt:   doc.ExpiresAt,
		Active:      doc.Active,
	}
}
