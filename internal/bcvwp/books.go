package bcvwp

// Book describes one entry of the canonical book table.
type Book struct {
	Number     string
	Identifier string
	Name       string
}

// books is indexed 0-based. Position 39 is an unused placeholder kept so
// that New Testament indexes line up with their book numbers.
var books = []Book{
	{Number: "1", Identifier: "GEN", Name: "Genesis"},
	{Number: "2", Identifier: "EXO", Name: "Exodus"},
	{Number: "3", Identifier: "LEV", Name: "Leviticus"},
	{Number: "4", Identifier: "NUM", Name: "Numbers"},
	{Number: "5", Identifier: "DEU", Name: "Deuteronomy"},
	{Number: "6", Identifier: "JOS", Name: "Joshua"},
	{Number: "7", Identifier: "JDG", Name: "Judges"},
	{Number: "8", Identifier: "RUT", Name: "Ruth"},
	{Number: "9", Identifier: "1SA", Name: "1 Samuel"},
	{Number: "10", Identifier: "2SA", Name: "2 Samuel"},
	{Number: "11", Identifier: "1KI", Name: "1 Kings"},
	{Number: "12", Identifier: "2KI", Name: "2 Kings"},
	{Number: "13", Identifier: "1CH", Name: "1 Chronicles"},
	{Number: "14", Identifier: "2CH", Name: "2 Chronicles"},
	{Number: "15", Identifier: "EZR", Name: "Ezra"},
	{Number: "16", Identifier: "NEH", Name: "Nehemiah"},
	{Number: "17", Identifier: "EST", Name: "Esther"},
	{Number: "18", Identifier: "JOB", Name: "Job"},
	{Number: "19", Identifier: "PSA", Name: "Psalms"},
	{Number: "20", Identifier: "PRO", Name: "Proverbs"},
	{Number: "21", Identifier: "ECC", Name: "Ecclesiastes"},
	{Number: "22", Identifier: "SNG", Name: "Song of Songs"},
	{Number: "23", Identifier: "ISA", Name: "Isaiah"},
	{Number: "24", Identifier: "JER", Name: "Jeremiah"},
	{Number: "25", Identifier: "LAM", Name: "Lamentations"},
	{Number: "26", Identifier: "EZK", Name: "Ezekiel"},
	{Number: "27", Identifier: "DAN", Name: "Daniel"},
	{Number: "28", Identifier: "HOS", Name: "Hosea"},
	{Number: "29", Identifier: "JOL", Name: "Joel"},
	{Number: "30", Identifier: "AMO", Name: "Amos"},
	{Number: "31", Identifier: "OBA", Name: "Obadiah"},
	{Number: "32", Identifier: "JON", Name: "Jonah"},
	{Number: "33", Identifier: "MIC", Name: "Micah"},
	{Number: "34", Identifier: "NAM", Name: "Nahum"},
	{Number: "35", Identifier: "HAB", Name: "Habakkuk"},
	{Number: "36", Identifier: "ZEP", Name: "Zephaniah"},
	{Number: "37", Identifier: "HAG", Name: "Haggai"},
	{Number: "38", Identifier: "ZEC", Name: "Zechariah"},
	{Number: "39", Identifier: "MAL", Name: "Malachi"},
	{Number: "none", Identifier: "none", Name: "none"},
	{Number: "41", Identifier: "MAT", Name: "Matthew"},
	{Number: "42", Identifier: "MRK", Name: "Mark"},
	{Number: "43", Identifier: "LUK", Name: "Luke"},
	{Number: "44", Identifier: "JHN", Name: "John"},
	{Number: "45", Identifier: "ACT", Name: "Acts"},
	{Number: "46", Identifier: "ROM", Name: "Romans"},
	{Number: "47", Identifier: "1CO", Name: "1 Corinthians"},
	{Number: "48", Identifier: "2CO", Name: "2 Corinthians"},
	{Number: "49", Identifier: "GAL", Name: "Galatians"},
	{Number: "50", Identifier: "EPH", Name: "Ephesians"},
	{Number: "51", Identifier: "PHP", Name: "Philippians"},
	{Number: "52", Identifier: "COL", Name: "Colossians"},
	{Number: "53", Identifier: "1TH", Name: "1 Thessalonians"},
	{Number: "54", Identifier: "2TH", Name: "2 Thessalonians"},
	{Number: "55", Identifier: "1TI", Name: "1 Timothy"},
	{Number: "56", Identifier: "2TI", Name: "2 Timothy"},
	{Number: "57", Identifier: "TIT", Name: "Titus"},
	{Number: "58", Identifier: "PHM", Name: "Philemon"},
	{Number: "59", Identifier: "HEB", Name: "Hebrews"},
	{Number: "60", Identifier: "JAS", Name: "James"},
	{Number: "61", Identifier: "1PE", Name: "1 Peter"},
	{Number: "62", Identifier: "2PE", Name: "2 Peter"},
	{Number: "63", Identifier: "1JN", Name: "1 John"},
	{Number: "64", Identifier: "2JN", Name: "2 John"},
	{Number: "65", Identifier: "3JN", Name: "3 John"},
	{Number: "66", Identifier: "JUD", Name: "Jude"},
	{Number: "67", Identifier: "REV", Name: "Revelation"},
	{Number: "68", Identifier: "TOB", Name: "Tobit"},
	{Number: "69", Identifier: "JDT", Name: "Judith"},
	{Number: "70", Identifier: "ESG", Name: "Esther Greek"},
	{Number: "71", Identifier: "WIS", Name: "Wisdom of Solomon"},
	{Number: "72", Identifier: "SIR", Name: "Sirach"},
	{Number: "73", Identifier: "BAR", Name: "Baruch"},
	{Number: "74", Identifier: "LJE", Name: "Letter of Jeremiah"},
	{Number: "75", Identifier: "S3Y", Name: "Song of the 3 Young Men"},
	{Number: "76", Identifier: "SUS", Name: "Susanna"},
	{Number: "77", Identifier: "BEL", Name: "Bel and the Dragon"},
	{Number: "78", Identifier: "1MA", Name: "1 Maccabees"},
	{Number: "79", Identifier: "2MA", Name: "2 Maccabees"},
	{Number: "80", Identifier: "3MA", Name: "3 Maccabees"},
	{Number: "81", Identifier: "4MA", Name: "4 Maccabees"},
	{Number: "82", Identifier: "1ES", Name: "1 Esdras (Greek)"},
	{Number: "83", Identifier: "2ES", Name: "2 Esdras (Latin)"},
	{Number: "84", Identifier: "MAN", Name: "Prayer of Manasseh"},
	{Number: "85", Identifier: "PS2", Name: "Psalm 151"},
	{Number: "86", Identifier: "ODA", Name: "Odae/Odes"},
	{Number: "87", Identifier: "PSS", Name: "Psalms of Solomon"},
	{Number: "A4", Identifier: "EZA", Name: "Ezra Apocalypse"},
	{Number: "A5", Identifier: "5EZ", Name: "5 Ezra"},
	{Number: "A6", Identifier: "6EZ", Name: "6 Ezra"},
	{Number: "B2", Identifier: "DAG", Name: "Daniel Greek"},
	{Number: "B3", Identifier: "PS3", Name: "Psalms 152-155"},
	{Number: "B4", Identifier: "2BA", Name: "2 Baruch (Apocalypse)"},
	{Number: "B5", Identifier: "LBA", Name: "Letter of Baruch"},
	{Number: "B6", Identifier: "JUB", Name: "Jubilees"},
	{Number: "B7", Identifier: "ENO", Name: "Enoch"},
	{Number: "B8", Identifier: "1MQ", Name: "1 Meqabyan/Mekabis"},
	{Number: "B9", Identifier: "2MQ", Name: "2 Meqabyan/Mekabis"},
	{Number: "C0", Identifier: "3MQ", Name: "3 Meqabyan/Mekabis"},
	{Number: "C1", Identifier: "REP", Name: "Reproof"},
	{Number: "C2", Identifier: "4BA", Name: "4 Baruch"},
	{Number: "C3", Identifier: "LAO", Name: "Letter to the Laodiceans"},
	{Number: "A0", Identifier: "FRT", Name: "Front Matter"},
	{Number: "A1", Identifier: "BAK", Name: "Back Matter"},
	{Number: "A2", Identifier: "OTH", Name: "Other Matter"},
	{Number: "A7", Identifier: "INT", Name: "Introduction Matter"},
	{Number: "A8", Identifier: "CNC", Name: "Concordance"},
	{Number: "A9", Identifier: "GLO", Name: "Glossary/Wordlist"},
	{Number: "B0", Identifier: "TDX", Name: "Topical Index"},
	{Number: "B1", Identifier: "NDX", Name: "Names Index"},
	{Number: "94", Identifier: "XXA", Name: "Extra Material"},
	{Number: "95", Identifier: "XXB", Name: "Extra Material"},
	{Number: "96", Identifier: "XXC", Name: "Extra Material"},
	{Number: "97", Identifier: "XXD", Name: "Extra Material"},
	{Number: "98", Identifier: "XXE", Name: "Extra Material"},
	{Number: "99", Identifier: "XXF", Name: "Extra Material"},
	{Number: "100", Identifier: "XXG", Name: "Extra Material"},
}

const placeholder = "none"

// BookCount is the number of entries in the book table.
func BookCount() int {
	return len(books)
}

// BookByIndex returns the entry at a 0-based table index.
func BookByIndex(index int) (Book, bool) {
	if index < 0 || index >= len(books) || books[index].Number == placeholder {
		return Book{}, false
	}
	return books[index], true
}

// BookByNumber finds a book by its number code ("1", "41", "A4", ...).
func BookByNumber(number string) (Book, bool) {
	if number == placeholder {
		return Book{}, false
	}
	for _, b := range books {
		if b.Number == number {
			return b, true
		}
	}
	return Book{}, false
}

// BookByIdentifier finds a book by its short identifier ("GEN", "MAT", ...).
func BookByIdentifier(identifier string) (Book, bool) {
	if identifier == placeholder {
		return Book{}, false
	}
	for _, b := range books {
		if b.Identifier == identifier {
			return b, true
		}
	}
	return Book{}, false
}
