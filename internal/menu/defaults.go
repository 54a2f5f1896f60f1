package menu

const defaultDescriptionTH = "เมนูยอดนิยม รสชาติกลมกล่อม"

// item builds a catalog entry with the house macros (10/10/20/2) that the
// compiled-in catalog shares.
func item(id, th, en string, kcal, score float64, tag HealthTag, sugar float64, caffeine CaffeineLevel) MenuItem {
	return MenuItem{
		ID:            id,
		NameTH:        th,
		NameEN:        en,
		DescriptionTH: defaultDescriptionTH,
		CaloriesKcal:  kcal,
		ProteinG:      10,
		FatG:          10,
		CarbG:         20,
		SugarG:        sugar,
		FiberG:        2,
		CaffeineLevel: caffeine,
		HealthScore:   score,
		TypeTag:       tag,
	}
}

// DefaultCatalog returns the compiled-in catalog used at process start.
func DefaultCatalog() Catalog {
	return Catalog{
		Version: "1.0-default",
		Categories: CategoryLists{
			MainDish: []MenuItem{
				item("m1", "ข้าวมันไก่ (อก)", "Hainanese Chicken Rice (Breast)", 550, 6, TagNormal, 2, CaffeineNone),
				item("m2", "ส้มตำไทย + ไก่ย่าง", "Papaya Salad + Grilled Chicken", 350, 9, TagHealthy, 8, CaffeineNone),
				item("m3", "ผัดกะเพราหมูสับไข่ดาว", "Basil Pork with Fried Egg", 650, 4, TagHighCalorie, 3, CaffeineNone),
				item("m4", "สุกี้น้ำไก่", "Chicken Suki Soup", 300, 9, TagLowCarb, 2, CaffeineNone),
				item("m5", "ข้าวไข่เจียวหมูสับ", "Omelet with Rice", 600, 5, TagHighCalorie, 1, CaffeineNone),
				item("m6", "สลัดอกไก่", "Chicken Breast Salad", 250, 10, TagHealthy, 2, CaffeineNone),
				item("m7", "ต้มยำกุ้งน้ำใส", "Tom Yum Kung (Clear Soup)", 150, 9, TagLowCarb, 1, CaffeineNone),
				item("m8", "ข้าวขาหมู", "Stewed Pork Leg Rice", 700, 3, TagHighCalorie, 4, CaffeineNone),
			},
			Snack: []MenuItem{
				item("s1", "ผลไม้รวม", "Mixed Fruits", 80, 10, TagHealthy, 12, CaffeineNone),
				item("s2", "ขนมปังโฮลวีต 1 แผ่น", "Whole Wheat Bread", 80, 9, TagHealthy, 1, CaffeineNone),
				item("s3", "มันฝรั่งทอด", "Potato Chips", 300, 2, TagHighCalorie, 1, CaffeineNone),
				item("s4", "ลูกชิ้นปิ้ง 3 ไม้", "Grilled Meatballs", 250, 4, TagNormal, 2, CaffeineNone),
				item("s5", "ถั่วอัลมอนด์", "Almonds", 160, 9, TagHealthy, 1, CaffeineNone),
			},
			Drink: []MenuItem{
				item("d1", "น้ำเปล่า", "Water", 0, 10, TagHealthy, 0, CaffeineNone),
				item("d2", "ชาเขียวไม่หวาน", "Unsweetened Green Tea", 0, 9, TagHealthy, 0, CaffeineMedium),
				item("d3", "ชานมไข่มุก", "Bubble Milk Tea", 450, 2, TagHighCalorie, 35, CaffeineMedium),
				item("d4", "กาแฟดำ / อเมริกาโน่", "Black Coffee", 10, 9, TagHealthy, 0, CaffeineHigh),
				item("d5", "น้ำอัดลม", "Soda", 140, 1, TagHighCalorie, 32, CaffeineLow),
				item("d6", "ลาเต้เย็น", "Iced Latte", 220, 5, TagNormal, 15, CaffeineMedium),
			},
		},
	}
}
