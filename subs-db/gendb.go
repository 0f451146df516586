package main

import (
	"log"
	"time"

	"github.com/tinode/anonsub/server/store"
	"github.com/tinode/anonsub/server/store/types"
)

/*
Topic object in data.json

	"createdAt": "-140h",
	"id": 1,
	"title": "Welcome to the forum",
	"permalink": "https://forum.example.com/topic/welcome",
	"state": "publish"
*/
type Topic struct {
	CreatedAt string `json:"createdAt"`
	Id        int64  `json:"id"`
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
	State     string `json:"state"`
}

/*
Reply object in data.json

	"createdAt": "-139h",
	"id": 11,
	"topic": 1,
	"state": "publish",
	"authorName": "Alice",
	"authorEmail": "alice@example.com",
	"content": "<p>Hello!</p>",
	"url": "https://forum.example.com/topic/welcome#post-11"
*/
type Reply struct {
	CreatedAt   string `json:"createdAt"`
	Id          int64  `json:"id"`
	Topic       int64  `json:"topic"`
	State       string `json:"state"`
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	Content     string `json:"content"`
	Url         string `json:"url"`
}

// Subscription lists anonymous subscribers of a topic in data.json.
type Subscription struct {
	Topic  int64    `json:"topic"`
	Emails []string `json:"emails"`
}

// Data is the content of data.json.
type Data struct {
	Topics        []Topic        `json:"topics"`
	Replies       []Reply        `json:"replies"`
	Subscriptions []Subscription `json:"subscriptions"`
}

func genDb(data *Data) error {
	if len(data.Topics) == 0 {
		log.Println("No data provided, stopping")
		return nil
	}

	log.Println("Generating topics...")
	for _, tt := range data.Topics {
		createdAt, err := getCreatedTime(tt.CreatedAt)
		if err != nil {
			return err
		}
		topic := types.Topic{
			ObjHeader: types.ObjHeader{Id: tt.Id, CreatedAt: createdAt},
			Title:     tt.Title,
			Permalink: tt.Permalink,
			State:     types.PostState(tt.State),
		}
		if err := store.Topics.Upsert(&topic); err != nil {
			return err
		}
	}

	log.Println("Generating replies...")
	for _, rr := range data.Replies {
		createdAt, err := getCreatedTime(rr.CreatedAt)
		if err != nil {
			return err
		}
		reply := types.Reply{
			ObjHeader:   types.ObjHeader{Id: rr.Id, CreatedAt: createdAt},
			Topic:       rr.Topic,
			State:       types.PostState(rr.State),
			AuthorName:  rr.AuthorName,
			AuthorEmail: rr.AuthorEmail,
			Content:     rr.Content,
			Url:         rr.Url,
		}
		if err := store.Replies.Upsert(&reply); err != nil {
			return err
		}
	}

	log.Println("Generating subscriptions...")
	for _, ss := range data.Subscriptions {
		if len(ss.Emails) == 0 {
			continue
		}
		if err := store.Subscribers.Save(ss.Topic, ss.Emails); err != nil {
			return err
		}
	}

	log.Println("Sample data loaded:", len(data.Topics), "topics,", len(data.Replies), "replies,",
		len(data.Subscriptions), "subscriptions")
	return nil
}

// getCreatedTime converts offset like "-140h" into the absolute time.
func getCreatedTime(delta string) (time.Time, error) {
	var dd time.Duration
	if delta != "" {
		var err error
		if dd, err = time.ParseDuration(delta); err != nil {
			return time.Time{}, err
		}
	}
	return types.TimeNow().Add(dd), nil
}
