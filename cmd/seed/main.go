package main

import (
	"log"
	"os"

	"ai-livecourse-be/internal/model"
	"ai-livecourse-be/pkg/database"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		log.Fatal("Error: DB_CONNECTION_STRING is not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	SeedCourseMaterials(db)
	log.Println("✅ Seeding complete")
}

// SeedCourseMaterials loads the demo course chunks backing the answerer.
func SeedCourseMaterials(db *gorm.DB) {
	materials := []model.CourseMaterial{
		{
			TopicId: "t1",
			Title:   "O que é um modelo de linguagem",
			Content: "Um modelo de linguagem de grande porte (LLM) é uma rede neural treinada para prever o próximo token de um texto. Com escala suficiente, essa tarefa simples produz capacidades de compreensão e geração de linguagem natural.",
		},
		{
			TopicId: "t1",
			Title:   "Tokens e janela de contexto",
			Content: "Tokens são as unidades mínimas que o modelo processa; uma palavra pode virar um ou vários tokens. A janela de contexto limita quantos tokens o modelo enxerga de uma vez, o que afeta custo e qualidade das respostas.",
		},
		{
			TopicId: "t2",
			Title:   "Busca e recuperação",
			Content: "RAG (retrieval-augmented generation) combina busca com geração: os trechos mais relevantes da base de conhecimento são recuperados e anexados ao prompt antes da geração, reduzindo alucinações.",
		},
		{
			TopicId: "t2",
			Title:   "Montagem de prompt",
			Content: "A montagem do prompt em RAG intercala instruções, contexto recuperado e a pergunta do usuário. A ordem e a delimitação clara de cada seção influenciam diretamente a fidelidade da resposta ao material.",
		},
	}

	for _, m := range materials {
		result := db.Where("topic_id = ? AND title = ?", m.TopicId, m.Title).
			FirstOrCreate(&m)
		if result.Error != nil {
			log.Printf("Warn: failed to seed material %q: %v", m.Title, result.Error)
		}
	}
	log.Printf("Seeded %d course materials", len(materials))
}
