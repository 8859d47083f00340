package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"edupresent/internal/ai"
	"edupresent/internal/assembler"
	"edupresent/internal/config"
	"edupresent/internal/database"
)

func main() {
	var (
		title  = flag.String("title", "", "演示文稿标题（必填）")
		dbHost = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		ssl    = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	t := strings.TrimSpace(*title)
	if t == "" {
		log.Fatal("missing required flag: --title")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *ssl)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := db.AutoMigrate(
		&database.Presentation{},
		&database.Slide{},
		&database.ContentBlock{},
		&database.Media{},
	); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	// 用草稿导入路径造演示数据，和 AI 生成走同一条入口。
	draft := ai.Draft{
		Title:       t,
		Description: "演示数据，由 admin 工具生成",
		Slides: []ai.DraftSlide{
			{Title: "Welcome", Content: "这是一页示例文本内容。", Layout: "title-content"},
			{Title: "Agenda", Content: "1. 背景\n2. 方案\n3. 总结", Layout: "title-content"},
		},
	}

	doc, err := ai.ImportDraft(draft)
	if err != nil {
		log.Fatalf("build demo presentation: %v", err)
	}

	store := assembler.NewStore(db)
	id, err := store.Save(context.Background(), doc)
	if err != nil {
		log.Fatalf("save demo presentation: %v", err)
	}

	fmt.Printf("已创建演示文稿：\n")
	fmt.Printf("ID: %d\n", id)
	fmt.Printf("标题: %s\n", t)
	fmt.Printf("页数: %d\n", len(doc.Slides))
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
