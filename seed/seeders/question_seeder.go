package seeders

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/usmle-trivia/quiz_api/model"
	"gorm.io/gorm"
)

// QuestionSeeder loads a starter question bank for local development
type QuestionSeeder struct {
	db *gorm.DB
}

func NewQuestionSeeder(db *gorm.DB) *QuestionSeeder {
	return &QuestionSeeder{db: db}
}

type seedQuestion struct {
	Stem         string
	Options      []string
	CorrectIndex int
	Difficulty   string
	Category     string
	Tags         []string
}

func (s *QuestionSeeder) SeedQuestions() error {
	var count int64
	if err := s.db.Model(&model.Question{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Printf("Question bank already has %d questions, skipping", count)
		return nil
	}

	seeded := 0
	for _, sq := range starterQuestions() {
		options, err := json.Marshal(sq.Options)
		if err != nil {
			return err
		}
		tags, err := json.Marshal(sq.Tags)
		if err != nil {
			return err
		}

		id, _ := uuid.NewV7()
		question := model.Question{
			ID:           id.String(),
			Stem:         sq.Stem,
			Options:      options,
			CorrectIndex: sq.CorrectIndex,
			Difficulty:   sq.Difficulty,
			Category:     sq.Category,
			Tags:         tags,
		}
		if err := s.db.Create(&question).Error; err != nil {
			return err
		}
		seeded++
	}

	log.Printf("Seeded %d questions", seeded)
	return nil
}

func starterQuestions() []seedQuestion {
	return []seedQuestion{
		{
			Stem:         "A 55-year-old man presents with crushing substernal chest pain radiating to the left arm. ECG shows ST elevation in leads II, III, and aVF. Which coronary artery is most likely occluded?",
			Options:      []string{"Left anterior descending artery", "Right coronary artery", "Left circumflex artery", "Left main coronary artery"},
			CorrectIndex: 1,
			Difficulty:   "medium",
			Category:     "cardiology",
			Tags:         []string{"myocardial infarction", "ecg"},
		},
		{
			Stem:         "Which antihypertensive class is contraindicated in bilateral renal artery stenosis?",
			Options:      []string{"ACE inhibitors", "Calcium channel blockers", "Thiazide diuretics", "Beta blockers"},
			CorrectIndex: 0,
			Difficulty:   "easy",
			Category:     "pharmacology",
			Tags:         []string{"hypertension", "renal"},
		},
		{
			Stem:         "A patient on warfarin starts a course of trimethoprim-sulfamethoxazole. What is the expected effect on INR?",
			Options:      []string{"INR decreases", "INR increases", "INR is unchanged", "INR becomes unmeasurable"},
			CorrectIndex: 1,
			Difficulty:   "medium",
			Category:     "pharmacology",
			Tags:         []string{"drug interactions", "anticoagulation"},
		},
		{
			Stem:         "Which enzyme deficiency causes hemolytic anemia after ingestion of fava beans?",
			Options:      []string{"Pyruvate kinase", "Glucose-6-phosphate dehydrogenase", "Hexokinase", "Aldolase B"},
			CorrectIndex: 1,
			Difficulty:   "easy",
			Category:     "biochemistry",
			Tags:         []string{"hemolysis", "g6pd"},
		},
		{
			Stem:         "A 24-year-old presents with a painless genital ulcer. Darkfield microscopy shows spirochetes. What is the first-line treatment?",
			Options:      []string{"Azithromycin", "Doxycycline", "Benzathine penicillin G", "Ceftriaxone"},
			CorrectIndex: 2,
			Difficulty:   "easy",
			Category:     "microbiology",
			Tags:         []string{"syphilis", "antibiotics"},
		},
		{
			Stem:         "Which lung volume cannot be measured by spirometry alone?",
			Options:      []string{"Tidal volume", "Inspiratory reserve volume", "Residual volume", "Expiratory reserve volume"},
			CorrectIndex: 2,
			Difficulty:   "medium",
			Category:     "physiology",
			Tags:         []string{"pulmonary", "lung volumes"},
		},
		{
			Stem:         "A 68-year-old woman has a resting tremor, rigidity, and bradykinesia. Loss of neurons in which structure underlies her condition?",
			Options:      []string{"Caudate nucleus", "Substantia nigra pars compacta", "Subthalamic nucleus", "Globus pallidus"},
			CorrectIndex: 1,
			Difficulty:   "easy",
			Category:     "neurology",
			Tags:         []string{"parkinson", "basal ganglia"},
		},
		{
			Stem:         "Which immunoglobulin is the first to be produced in a primary immune response?",
			Options:      []string{"IgG", "IgA", "IgM", "IgE"},
			CorrectIndex: 2,
			Difficulty:   "easy",
			Category:     "immunology",
			Tags:         []string{"antibodies"},
		},
		{
			Stem:         "A neonate presents with projectile nonbilious vomiting at 4 weeks of age. An olive-shaped mass is palpated in the epigastrium. What is the most likely acid-base disturbance?",
			Options:      []string{"Metabolic acidosis", "Respiratory alkalosis", "Hypochloremic metabolic alkalosis", "Respiratory acidosis"},
			CorrectIndex: 2,
			Difficulty:   "hard",
			Category:     "pediatrics",
			Tags:         []string{"pyloric stenosis", "acid-base"},
		},
		{
			Stem:         "Which of the following tumor markers is most associated with hepatocellular carcinoma?",
			Options:      []string{"CA 19-9", "Alpha-fetoprotein", "CEA", "CA 125"},
			CorrectIndex: 1,
			Difficulty:   "easy",
			Category:     "oncology",
			Tags:         []string{"tumor markers", "liver"},
		},
		{
			Stem:         "A patient with long-standing GERD develops intestinal metaplasia of the distal esophagus. This finding most increases the risk of which malignancy?",
			Options:      []string{"Squamous cell carcinoma", "Esophageal adenocarcinoma", "Gastric lymphoma", "Leiomyosarcoma"},
			CorrectIndex: 1,
			Difficulty:   "medium",
			Category:     "gastroenterology",
			Tags:         []string{"barrett esophagus"},
		},
		{
			Stem:         "Which diuretic acts on the Na-K-2Cl cotransporter in the thick ascending limb of the loop of Henle?",
			Options:      []string{"Hydrochlorothiazide", "Spironolactone", "Furosemide", "Acetazolamide"},
			CorrectIndex: 2,
			Difficulty:   "easy",
			Category:     "pharmacology",
			Tags:         []string{"diuretics", "renal"},
		},
		{
			Stem:         "A 30-year-old woman has fatigue, weight gain, and cold intolerance. TSH is elevated and free T4 is low. Antibodies against which enzyme are most likely present?",
			Options:      []string{"Thyroid peroxidase", "21-hydroxylase", "Glutamic acid decarboxylase", "Intrinsic factor"},
			CorrectIndex: 0,
			Difficulty:   "easy",
			Category:     "endocrinology",
			Tags:         []string{"hashimoto", "thyroid"},
		},
		{
			Stem:         "Cross-sections of which nerve at the mid-humerus put wrist extension at risk?",
			Options:      []string{"Median nerve", "Ulnar nerve", "Radial nerve", "Musculocutaneous nerve"},
			CorrectIndex: 2,
			Difficulty:   "medium",
			Category:     "anatomy",
			Tags:         []string{"upper limb", "nerve injury"},
		},
		{
			Stem:         "A 45-year-old man with cirrhosis develops confusion and asterixis. Elevated levels of which compound most directly drive this presentation?",
			Options:      []string{"Bilirubin", "Ammonia", "Urea", "Lactate"},
			CorrectIndex: 1,
			Difficulty:   "medium",
			Category:     "gastroenterology",
			Tags:         []string{"hepatic encephalopathy"},
		},
	}
}
